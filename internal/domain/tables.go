package domain

import (
	"fmt"
	"sort"
)

// LotKey identifies an import lot: one ingredient accumulated at one
// (port, operator, owning company) under a lot code. A single flat key
// replaces the ingredient→port→operator→company→lot nesting of the source
// sheets, so "does this combination exist" is one map lookup.
type LotKey struct {
	Ingredient string
	Port       string
	Operator   string
	Company    string
	Lot        string
}

func (k LotKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Ingredient, k.Port, k.Operator, k.Company, k.Lot)
}

// PlantIngredient keys the plant table.
type PlantIngredient struct {
	Plant      string
	Ingredient string
}

func (k PlantIngredient) String() string {
	return k.Plant + "/" + k.Ingredient
}

// PlantRecord holds every per-period series for one (plant, ingredient).
// All slices are horizon-length and fully populated; absent source data is
// zero-filled by the normalizer.
type PlantRecord struct {
	// Consumption is the projected daily consumption in kg.
	Consumption []float64
	// Capacity is the assigned storage capacity in kg, per period.
	Capacity []float64
	// Arrivals are previously scheduled in-transit arrivals in kg.
	Arrivals []float64
	// Inventory is seeded with the naive forward projection and replaced
	// with solved end-of-period inventory after the solve.
	Inventory []float64
	// Backorder is seeded with the projection shortfall and replaced with
	// solved unmet consumption after the solve.
	Backorder []float64
	// Shortfall is the solved safety-stock shortfall in kg.
	Shortfall []float64

	InitialInventory float64
	// SafetyStockKg is the safety-stock target converted from days of
	// average consumption to kg. Zero means no target.
	SafetyStockKg float64
	// TargetKg is the desired end-of-horizon inventory. Zero means no
	// target.
	TargetKg float64
	// MinutesPerTruck is the plant's unloading time for one truck of this
	// ingredient.
	MinutesPerTruck float64
}

// PlantTable is the normalized plant-side parameter table.
type PlantTable struct {
	Horizon Horizon
	Records map[PlantIngredient]*PlantRecord
	// ReceptionMinutes is each plant's daily truck-unloading minutes
	// budget across all ingredients.
	ReceptionMinutes map[string]float64
	// PlantCompany maps a plant to its owning company, used for the
	// inter-company transfer markup lookup.
	PlantCompany map[string]string
}

// Plants returns the distinct plant names present in the table, sorted.
func (pt *PlantTable) Plants() []string {
	seen := make(map[string]bool)
	var plants []string
	for key := range pt.Records {
		if !seen[key.Plant] {
			seen[key.Plant] = true
			plants = append(plants, key.Plant)
		}
	}
	sort.Strings(plants)
	return plants
}

// LotRecord holds every per-period series and per-destination rate for one
// import lot.
type LotRecord struct {
	InitialInventory float64
	// Arrivals are scheduled port discharges in kg, already split across
	// days by the daily discharge cap.
	Arrivals []float64
	// Inventory is replaced with solved end-of-period port inventory.
	Inventory []float64
	// StoragePerKg is the published warehousing tariff per kg per period.
	StoragePerKg []float64
	// DirectWindow marks the periods in which material can be dispatched
	// straight from the discharge point, bypassing the warehouse.
	DirectWindow []bool

	CifPerKg float64
	// DirectPerKg and WarehousePerKg are the port-operation tariffs per kg
	// for direct and warehoused truck loading.
	DirectPerKg    float64
	WarehousePerKg float64

	// FreightPerKg maps a destination plant to the freight rate. A plant
	// absent from this map cannot be served from this lot.
	FreightPerKg map[string]float64
	// MarkupFraction maps a destination company to the inter-company
	// transfer markup applied on the CIF value.
	MarkupFraction map[string]float64
	// TruckCost maps a destination plant to the per-period total cost of
	// dispatching one truck, filled by the cost calculator.
	TruckCost map[string][]float64
	// Dispatch maps a destination plant to solved truck counts per
	// decision period.
	Dispatch map[string][]float64
}

// TotalAvailable returns initial inventory plus all scheduled arrivals.
func (r *LotRecord) TotalAvailable() float64 {
	total := r.InitialInventory
	for _, a := range r.Arrivals {
		total += a
	}
	return total
}

// CargoTable is the normalized port-side parameter table.
type CargoTable struct {
	Horizon Horizon
	Lots    map[LotKey]*LotRecord
}
