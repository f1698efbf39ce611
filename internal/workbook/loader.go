package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"bulk-dispatch-planner/internal/domain"
)

// Sheet names are fixed by the workbook contract.
const (
	SheetPlants        = "plantas"
	SheetConsumption   = "consumo_proyectado"
	SheetSafetyStock   = "safety_stock"
	SheetPlantTransit  = "tto_plantas"
	SheetPortTransit   = "tto_puerto"
	SheetPortInventory = "inventario_puerto"
	SheetStorageTariff = "costos_almacenamiento_cargas"
	SheetPortTariffs   = "costos_operacion_portuaria"
	SheetFreight       = "fletes_cop_per_kg"
	SheetTransfer      = "venta_entre_empresas"
	SheetCapacity      = "capacidad_almacenamiento"
)

// Load reads every sheet of the planning workbook at path into raw row
// slices. It validates sheet presence and cell syntax only; semantic
// validation happens in the parameter normalizer.
func Load(path string) (*RawTables, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	raw := &RawTables{}
	loaders := []struct {
		sheet string
		parse func(rows [][]string) error
	}{
		{SheetPlants, func(rows [][]string) error { return parsePlants(rows, raw) }},
		{SheetConsumption, func(rows [][]string) error { return parseConsumption(rows, raw) }},
		{SheetSafetyStock, func(rows [][]string) error { return parseSafetyStock(rows, raw) }},
		{SheetPlantTransit, func(rows [][]string) error { return parsePlantTransit(rows, raw) }},
		{SheetPortTransit, func(rows [][]string) error { return parsePortTransit(rows, raw) }},
		{SheetPortInventory, func(rows [][]string) error { return parsePortInventory(rows, raw) }},
		{SheetStorageTariff, func(rows [][]string) error { return parseStorageTariff(rows, raw) }},
		{SheetPortTariffs, func(rows [][]string) error { return parsePortTariffs(rows, raw) }},
		{SheetFreight, func(rows [][]string) error { return parseFreight(rows, raw) }},
		{SheetTransfer, func(rows [][]string) error { return parseTransfer(rows, raw) }},
		{SheetCapacity, func(rows [][]string) error { return parseCapacity(rows, raw) }},
	}

	for _, l := range loaders {
		rows, err := f.GetRows(l.sheet)
		if err != nil {
			return nil, fmt.Errorf("missing sheet %q in %s: %w", l.sheet, path, err)
		}
		if len(rows) < 1 {
			return nil, fmt.Errorf("sheet %q in %s has no header row", l.sheet, path)
		}
		if err := l.parse(rows); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", l.sheet, err)
		}
	}

	return raw, nil
}

// header maps normalized column names to their positions.
func header(row []string) map[string]int {
	h := make(map[string]int, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseNum(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	// Exported sheets carry thousands separators.
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want dd/mm/yyyy)", s)
	}
	return d, nil
}

func require(h map[string]int, cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

func parsePlants(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "planta", "empresa", "minutos_dia", "plataformas", "minutos_limpieza"); err != nil {
		return err
	}
	fixed := map[int]bool{
		h["planta"]: true, h["empresa"]: true, h["minutos_dia"]: true,
		h["plataformas"]: true, h["minutos_limpieza"]: true,
	}
	for n, row := range rows[1:] {
		if cell(row, h["planta"]) == "" {
			continue
		}
		pr := PlantRow{
			Plant:         cell(row, h["planta"]),
			Company:       cell(row, h["empresa"]),
			UnloadMinutes: make(map[string]float64),
		}
		var err error
		if pr.DailyMinutes, err = parseNum(cell(row, h["minutos_dia"])); err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		if pr.Platforms, err = parseNum(cell(row, h["plataformas"])); err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		if pr.CleanupMinutes, err = parseNum(cell(row, h["minutos_limpieza"])); err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		for name, i := range h {
			if fixed[i] || name == "" {
				continue
			}
			v, err := parseNum(cell(row, i))
			if err != nil {
				return fmt.Errorf("row %d, ingredient %q: %w", n+2, name, err)
			}
			pr.UnloadMinutes[name] = v
		}
		raw.Plants = append(raw.Plants, pr)
	}
	return nil
}

func parseConsumption(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "planta", "ingrediente"); err != nil {
		return err
	}
	// Every column that parses as a date is a daily-consumption column.
	type dateCol struct {
		i int
		d time.Time
	}
	var dates []dateCol
	for i, name := range rows[0] {
		if d, err := time.Parse(domain.DateLayout, strings.TrimSpace(name)); err == nil {
			dates = append(dates, dateCol{i: i, d: d})
		}
	}
	if len(dates) == 0 {
		return fmt.Errorf("no date columns found")
	}
	for n, row := range rows[1:] {
		if cell(row, h["planta"]) == "" {
			continue
		}
		cr := ConsumptionRow{
			Plant:      cell(row, h["planta"]),
			Ingredient: cell(row, h["ingrediente"]),
			ByDate:     make(map[time.Time]float64, len(dates)),
		}
		for _, dc := range dates {
			v, err := parseNum(cell(row, dc.i))
			if err != nil {
				return fmt.Errorf("row %d, column %s: %w", n+2, dc.d.Format(domain.DateLayout), err)
			}
			cr.ByDate[dc.d] = v
		}
		raw.Consumption = append(raw.Consumption, cr)
	}
	return nil
}

func parseSafetyStock(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "planta", "ingrediente", "dias"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["planta"]) == "" {
			continue
		}
		days, err := parseNum(cell(row, h["dias"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.SafetyStock = append(raw.SafetyStock, SafetyStockRow{
			Plant:      cell(row, h["planta"]),
			Ingredient: cell(row, h["ingrediente"]),
			Days:       days,
		})
	}
	return nil
}

func parsePlantTransit(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "planta", "ingrediente", "fecha_llegada", "cantidad_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["planta"]) == "" {
			continue
		}
		arrival, err := parseDate(cell(row, h["fecha_llegada"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		kg, err := parseNum(cell(row, h["cantidad_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.PlantTransit = append(raw.PlantTransit, PlantTransitRow{
			Plant:      cell(row, h["planta"]),
			Ingredient: cell(row, h["ingrediente"]),
			Arrival:    arrival,
			Kg:         kg,
		})
	}
	return nil
}

func parsePortTransit(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "puerto", "operador", "empresa", "importacion", "ingrediente", "fecha_llegada", "cantidad_kg", "valor_cif_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["puerto"]) == "" {
			continue
		}
		arrival, err := parseDate(cell(row, h["fecha_llegada"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		kg, err := parseNum(cell(row, h["cantidad_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		cif, err := parseNum(cell(row, h["valor_cif_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.PortTransit = append(raw.PortTransit, PortTransitRow{
			Port:       cell(row, h["puerto"]),
			Operator:   cell(row, h["operador"]),
			Company:    cell(row, h["empresa"]),
			Lot:        cell(row, h["importacion"]),
			Ingredient: cell(row, h["ingrediente"]),
			Arrival:    arrival,
			Kg:         kg,
			CifPerKg:   cif,
		})
	}
	return nil
}

func parsePortInventory(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "empresa", "operador", "puerto", "ingrediente", "importacion", "fecha_llegada", "cantidad_kg", "valor_cif_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["empresa"]) == "" {
			continue
		}
		arrival, err := parseDate(cell(row, h["fecha_llegada"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		kg, err := parseNum(cell(row, h["cantidad_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		cif, err := parseNum(cell(row, h["valor_cif_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.PortInventory = append(raw.PortInventory, PortInventoryRow{
			Company:    cell(row, h["empresa"]),
			Operator:   cell(row, h["operador"]),
			Port:       cell(row, h["puerto"]),
			Ingredient: cell(row, h["ingrediente"]),
			Lot:        cell(row, h["importacion"]),
			Arrival:    arrival,
			Kg:         kg,
			CifPerKg:   cif,
		})
	}
	return nil
}

func parseStorageTariff(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "importacion", "fecha_corte", "costo_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["importacion"]) == "" {
			continue
		}
		cutoff, err := parseDate(cell(row, h["fecha_corte"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		costKg, err := parseNum(cell(row, h["costo_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.StorageTariff = append(raw.StorageTariff, StorageTariffRow{
			Lot:    cell(row, h["importacion"]),
			Cutoff: cutoff,
			CostKg: costKg,
		})
	}
	return nil
}

func parsePortTariffs(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "tipo_operacion", "operador", "puerto", "ingrediente", "costo_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["tipo_operacion"]) == "" {
			continue
		}
		op := strings.ToLower(cell(row, h["tipo_operacion"]))
		if op != "directo" && op != "bodega" {
			return fmt.Errorf("row %d: unknown operation type %q", n+2, op)
		}
		costKg, err := parseNum(cell(row, h["costo_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.PortTariffs = append(raw.PortTariffs, PortTariffRow{
			Operation:  op,
			Operator:   cell(row, h["operador"]),
			Port:       cell(row, h["puerto"]),
			Ingredient: cell(row, h["ingrediente"]),
			CostKg:     costKg,
		})
	}
	return nil
}

func parseFreight(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "puerto", "operador", "ingrediente"); err != nil {
		return err
	}
	fixed := map[int]bool{h["puerto"]: true, h["operador"]: true, h["ingrediente"]: true}
	for n, row := range rows[1:] {
		if cell(row, h["puerto"]) == "" {
			continue
		}
		fr := FreightRow{
			Port:       cell(row, h["puerto"]),
			Operator:   cell(row, h["operador"]),
			Ingredient: cell(row, h["ingrediente"]),
			PerPlant:   make(map[string]float64),
		}
		for name, i := range h {
			if fixed[i] || name == "" {
				continue
			}
			if cell(row, i) == "" {
				// No published rate for this destination.
				continue
			}
			v, err := parseNum(cell(row, i))
			if err != nil {
				return fmt.Errorf("row %d, plant %q: %w", n+2, name, err)
			}
			fr.PerPlant[name] = v
		}
		raw.Freight = append(raw.Freight, fr)
	}
	return nil
}

func parseTransfer(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "empresa_origen"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["empresa_origen"]) == "" {
			continue
		}
		tr := TransferRow{
			Origin:         cell(row, h["empresa_origen"]),
			PerDestination: make(map[string]float64),
		}
		for name, i := range h {
			if i == h["empresa_origen"] || name == "" {
				continue
			}
			if cell(row, i) == "" {
				continue
			}
			v, err := parseNum(cell(row, i))
			if err != nil {
				return fmt.Errorf("row %d, company %q: %w", n+2, name, err)
			}
			tr.PerDestination[name] = v
		}
		raw.Transfer = append(raw.Transfer, tr)
	}
	return nil
}

func parseCapacity(rows [][]string, raw *RawTables) error {
	h := header(rows[0])
	if err := require(h, "planta", "ingrediente", "unidad_almacenamiento", "stock_kg", "capacidad_kg"); err != nil {
		return err
	}
	for n, row := range rows[1:] {
		if cell(row, h["planta"]) == "" {
			continue
		}
		stock, err := parseNum(cell(row, h["stock_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		capKg, err := parseNum(cell(row, h["capacidad_kg"]))
		if err != nil {
			return fmt.Errorf("row %d: %w", n+2, err)
		}
		raw.Capacity = append(raw.Capacity, CapacityRow{
			Plant:       cell(row, h["planta"]),
			Ingredient:  cell(row, h["ingrediente"]),
			StorageUnit: cell(row, h["unidad_almacenamiento"]),
			StockKg:     stock,
			CapacityKg:  capKg,
		})
	}
	return nil
}
