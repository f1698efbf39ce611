package workbook

import "time"

// Raw row types mirror the fixed sheet layouts of the planning workbook.
// The loader does no aggregation or zero-filling; that is the parameter
// normalizer's job.

// PlantRow is one row of the "plantas" sheet.
type PlantRow struct {
	Plant          string
	Company        string
	DailyMinutes   float64
	Platforms      float64
	CleanupMinutes float64
	// UnloadMinutes maps an ingredient to the minutes needed to unload one
	// truck of it at this plant.
	UnloadMinutes map[string]float64
}

// ConsumptionRow is one row of "consumo_proyectado": projected daily
// consumption in kg, one column per calendar date.
type ConsumptionRow struct {
	Plant      string
	Ingredient string
	ByDate     map[time.Time]float64
}

// SafetyStockRow is one row of "safety_stock".
type SafetyStockRow struct {
	Plant      string
	Ingredient string
	Days       float64
}

// PlantTransitRow is one row of "tto_plantas": material already on the road
// to a plant.
type PlantTransitRow struct {
	Plant      string
	Ingredient string
	Arrival    time.Time
	Kg         float64
}

// PortTransitRow is one row of "tto_puerto": a vessel discharge scheduled
// into a port-side lot.
type PortTransitRow struct {
	Port       string
	Operator   string
	Company    string
	Lot        string
	Ingredient string
	Arrival    time.Time
	Kg         float64
	CifPerKg   float64
}

// PortInventoryRow is one row of "inventario_puerto": the on-hand snapshot
// of a lot at the start of the horizon.
type PortInventoryRow struct {
	Company    string
	Operator   string
	Port       string
	Ingredient string
	Lot        string
	Arrival    time.Time
	Kg         float64
	CifPerKg   float64
}

// StorageTariffRow is one row of "costos_almacenamiento_cargas": the
// warehousing tariff a lot pays per kg from a cutoff date onward.
type StorageTariffRow struct {
	Lot    string
	Cutoff time.Time
	CostKg float64
}

// PortTariffRow is one row of "costos_operacion_portuaria". Operation is
// "directo" or "bodega".
type PortTariffRow struct {
	Operation  string
	Operator   string
	Port       string
	Ingredient string
	CostKg     float64
}

// FreightRow is one row of "fletes_cop_per_kg": the freight rate from a
// (port, operator) origin per ingredient, one column per destination plant.
type FreightRow struct {
	Port       string
	Operator   string
	Ingredient string
	PerPlant   map[string]float64
}

// TransferRow is one row of "venta_entre_empresas": the inter-company
// transfer markup fraction from an origin company, one column per
// destination company.
type TransferRow struct {
	Origin         string
	PerDestination map[string]float64
}

// CapacityRow is one row of the derived storage-unit table: current stock
// and assigned capacity per plant, ingredient and storage unit.
type CapacityRow struct {
	Plant       string
	Ingredient  string
	StorageUnit string
	StockKg     float64
	CapacityKg  float64
}

// RawTables bundles every sheet of one planning workbook.
type RawTables struct {
	Plants        []PlantRow
	Consumption   []ConsumptionRow
	SafetyStock   []SafetyStockRow
	PlantTransit  []PlantTransitRow
	PortTransit   []PortTransitRow
	PortInventory []PortInventoryRow
	StorageTariff []StorageTariffRow
	PortTariffs   []PortTariffRow
	Freight       []FreightRow
	Transfer      []TransferRow
	Capacity      []CapacityRow
}
