// Package params turns the raw workbook rows into the dense, fully
// populated parameter tables the optimizer consumes. Every (entity, period)
// combination in the output is defined; combinations absent from the source
// are zero-filled.
package params

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bulk-dispatch-planner/internal/domain"
	"bulk-dispatch-planner/internal/workbook"
)

// Options carries the physical constants normalization depends on.
type Options struct {
	// TruckKg is the fixed truck capacity; lots holding less than one
	// truck in total are pruned.
	TruckKg float64
	// PortDailyDischargeKg caps how much of a scheduled vessel discharge
	// can enter a lot on a single day; the excess spills to following days.
	PortDailyDischargeKg float64
}

// HorizonFromConsumption derives the planning horizon from the date columns
// of the consumption forecast: consecutive days from the earliest to the
// latest forecast date.
func HorizonFromConsumption(raw *workbook.RawTables) (domain.Horizon, error) {
	var min, max time.Time
	for _, row := range raw.Consumption {
		for d := range row.ByDate {
			if min.IsZero() || d.Before(min) {
				min = d
			}
			if max.IsZero() || d.After(max) {
				max = d
			}
		}
	}
	if min.IsZero() {
		return domain.Horizon{}, fmt.Errorf("consumption forecast has no dates")
	}
	days := int(max.Sub(min).Hours()/24) + 1
	return domain.NewDailyHorizon(min, days), nil
}

// Normalize builds the plant and cargo tables for one horizon. It is a pure
// function of its inputs: the same workbook and horizon always produce
// identical tables. Data gaps are recorded on the returned validation list;
// unrecoverable input defects return an error before any model is built.
func Normalize(raw *workbook.RawTables, h domain.Horizon, opts Options) (*domain.PlantTable, *domain.CargoTable, domain.ValidationList, error) {
	var findings domain.ValidationList

	plants, err := buildPlantTable(raw, h, &findings)
	if err != nil {
		return nil, nil, findings, err
	}
	cargo, err := buildCargoTable(raw, h, opts, &findings)
	if err != nil {
		return nil, nil, findings, err
	}
	return plants, cargo, findings, nil
}

func buildPlantTable(raw *workbook.RawTables, h domain.Horizon, findings *domain.ValidationList) (*domain.PlantTable, error) {
	n := h.Len()
	pt := &domain.PlantTable{
		Horizon:          h,
		Records:          make(map[domain.PlantIngredient]*domain.PlantRecord),
		ReceptionMinutes: make(map[string]float64),
		PlantCompany:     make(map[string]string),
	}

	unload := make(map[domain.PlantIngredient]float64)
	for _, row := range raw.Plants {
		minutes := (row.DailyMinutes - row.CleanupMinutes) * row.Platforms
		if minutes < 0 {
			minutes = 0
		}
		pt.ReceptionMinutes[row.Plant] = minutes
		pt.PlantCompany[row.Plant] = row.Company
		for ing, m := range row.UnloadMinutes {
			unload[domain.PlantIngredient{Plant: row.Plant, Ingredient: ing}] = m
		}
	}

	// Consumption is the sheet that defines which (plant, ingredient)
	// dimensions exist. Duplicate rows are a hard error: summing them
	// silently would double the forecast.
	for _, row := range raw.Consumption {
		key := domain.PlantIngredient{Plant: row.Plant, Ingredient: row.Ingredient}
		if _, dup := pt.Records[key]; dup {
			return nil, fmt.Errorf("duplicate consumption rows for %s", key)
		}
		rec := &domain.PlantRecord{
			Consumption:     make([]float64, n),
			Capacity:        make([]float64, n),
			Arrivals:        make([]float64, n),
			Inventory:       make([]float64, n),
			Backorder:       make([]float64, n),
			Shortfall:       make([]float64, n),
			MinutesPerTruck: unload[key],
		}
		total := 0.0
		for d, kg := range row.ByDate {
			if t, ok := h.Index(d); ok {
				rec.Consumption[t] = math.Trunc(kg)
				total += rec.Consumption[t]
			}
		}
		if total == 0 {
			findings.Warnf("%s: zero projected consumption, excluded from the model", key)
			continue
		}
		pt.Records[key] = rec
	}

	// Storage-unit assignments give each consumed dimension its capacity
	// and opening stock. An actively consumed ingredient with no capacity
	// at all cannot be planned.
	capKg := make(map[domain.PlantIngredient]float64)
	stockKg := make(map[domain.PlantIngredient]float64)
	for _, row := range raw.Capacity {
		key := domain.PlantIngredient{Plant: row.Plant, Ingredient: row.Ingredient}
		capKg[key] += math.Trunc(row.CapacityKg)
		stockKg[key] += math.Trunc(row.StockKg)
	}
	for key, rec := range pt.Records {
		if capKg[key] <= 0 {
			findings.Critf("%s: positive consumption but no assigned storage capacity", key)
			return nil, fmt.Errorf("%s: positive consumption but no assigned storage capacity", key)
		}
		for t := range rec.Capacity {
			rec.Capacity[t] = capKg[key]
		}
		rec.InitialInventory = stockKg[key]
	}

	for _, row := range raw.PlantTransit {
		key := domain.PlantIngredient{Plant: row.Plant, Ingredient: row.Ingredient}
		rec, ok := pt.Records[key]
		if !ok {
			continue
		}
		t, ok := h.Index(row.Arrival)
		switch {
		case ok:
			// Same-day shipments accumulate.
			rec.Arrivals[t] += math.Trunc(row.Kg)
		case row.Arrival.Before(h.Date(0)):
			rec.InitialInventory += math.Trunc(row.Kg)
		default:
			findings.Warnf("%s: in-transit arrival on %s is past the horizon, ignored",
				key, row.Arrival.Format(domain.DateLayout))
		}
	}

	ssDays := make(map[domain.PlantIngredient]float64)
	for _, row := range raw.SafetyStock {
		ssDays[domain.PlantIngredient{Plant: row.Plant, Ingredient: row.Ingredient}] = row.Days
	}
	for key, rec := range pt.Records {
		days, ok := ssDays[key]
		if !ok {
			findings.Warnf("%s: no safety-stock row, target set to zero", key)
			continue
		}
		total := 0.0
		for _, c := range rec.Consumption {
			total += c
		}
		rec.SafetyStockKg = math.Trunc(days * total / float64(n))
		// The end-of-horizon target keeps the plant at its buffer level.
		rec.TargetKg = rec.SafetyStockKg
	}

	// Forward projection: seeds variable bounds and initial values only.
	// The optimizer is free to choose differently once dispatch exists.
	for _, rec := range pt.Records {
		project(rec)
	}

	return pt, nil
}

// project runs the naive inventory recurrence, clamping at zero and
// recording the clamped shortfall as projected backorder.
func project(rec *domain.PlantRecord) {
	prev := rec.InitialInventory
	for t := range rec.Inventory {
		inv := prev + rec.Arrivals[t] - rec.Consumption[t]
		if inv < 0 {
			rec.Backorder[t] = -inv
			inv = 0
		} else {
			rec.Backorder[t] = 0
		}
		rec.Inventory[t] = inv
		prev = inv
	}
}

func buildCargoTable(raw *workbook.RawTables, h domain.Horizon, opts Options, findings *domain.ValidationList) (*domain.CargoTable, error) {
	n := h.Len()
	ct := &domain.CargoTable{
		Horizon: h,
		Lots:    make(map[domain.LotKey]*domain.LotRecord),
	}

	newLot := func() *domain.LotRecord {
		return &domain.LotRecord{
			Arrivals:       make([]float64, n),
			Inventory:      make([]float64, n),
			StoragePerKg:   make([]float64, n),
			DirectWindow:   make([]bool, n),
			FreightPerKg:   make(map[string]float64),
			MarkupFraction: make(map[string]float64),
			TruckCost:      make(map[string][]float64),
			Dispatch:       make(map[string][]float64),
		}
	}

	// The port snapshot is the authoritative lot register: one row per lot.
	for _, row := range raw.PortInventory {
		key := domain.LotKey{
			Ingredient: row.Ingredient, Port: row.Port, Operator: row.Operator,
			Company: row.Company, Lot: row.Lot,
		}
		if _, dup := ct.Lots[key]; dup {
			return nil, fmt.Errorf("duplicate port-inventory rows for lot %s", key)
		}
		rec := newLot()
		rec.InitialInventory = math.Trunc(row.Kg)
		rec.CifPerKg = row.CifPerKg
		ct.Lots[key] = rec
	}

	// Scheduled discharges, split across days under the port's daily
	// unloading capacity.
	for _, row := range raw.PortTransit {
		key := domain.LotKey{
			Ingredient: row.Ingredient, Port: row.Port, Operator: row.Operator,
			Company: row.Company, Lot: row.Lot,
		}
		rec, ok := ct.Lots[key]
		if !ok {
			rec = newLot()
			rec.CifPerKg = row.CifPerKg
			ct.Lots[key] = rec
		}
		if rec.CifPerKg == 0 {
			rec.CifPerKg = row.CifPerKg
		}

		amount := math.Trunc(row.Kg)
		t, ok := h.Index(row.Arrival)
		if !ok {
			if row.Arrival.Before(h.Date(0)) {
				rec.InitialInventory += amount
				continue
			}
			findings.Warnf("lot %s: discharge on %s is past the horizon, ignored",
				key, row.Arrival.Format(domain.DateLayout))
			continue
		}
		if opts.PortDailyDischargeKg <= 0 {
			rec.Arrivals[t] += amount
			continue
		}
		for amount > opts.PortDailyDischargeKg && t < n-1 {
			rec.Arrivals[t] += opts.PortDailyDischargeKg
			amount -= opts.PortDailyDischargeKg
			t++
		}
		if amount > opts.PortDailyDischargeKg {
			spilled := amount - opts.PortDailyDischargeKg
			amount = opts.PortDailyDischargeKg
			findings.Warnf("lot %s: %.0f kg cannot be discharged before the horizon ends, dropped",
				key, spilled)
		}
		rec.Arrivals[t] += amount
	}

	// The direct-dispatch window spans the lot's discharge periods:
	// material can bypass the warehouse only while the vessel is being
	// worked.
	for _, rec := range ct.Lots {
		first, last := -1, -1
		for t, kg := range rec.Arrivals {
			if kg > 0 {
				if first < 0 {
					first = t
				}
				last = t
			}
		}
		for t := first; first >= 0 && t <= last; t++ {
			rec.DirectWindow[t] = true
		}
	}

	if err := applyStorageTariffs(raw, h, ct); err != nil {
		return nil, err
	}
	applyPortTariffs(raw, ct, findings)
	applyFreight(raw, ct, findings)
	applyTransferMarkup(raw, ct)

	// A lot that can never fill one truck can never be dispatched.
	for key, rec := range ct.Lots {
		if rec.TotalAvailable() < opts.TruckKg {
			findings.Warnf("lot %s: total available %.0f kg is below one truck, excluded from the model",
				key, rec.TotalAvailable())
			delete(ct.Lots, key)
		}
	}

	return ct, nil
}

// applyStorageTariffs fills each lot's per-period warehousing tariff: a
// published tariff applies from its cutoff date onward until a later cutoff
// replaces it.
func applyStorageTariffs(raw *workbook.RawTables, h domain.Horizon, ct *domain.CargoTable) error {
	byLot := make(map[string][]workbook.StorageTariffRow)
	for _, row := range raw.StorageTariff {
		byLot[row.Lot] = append(byLot[row.Lot], row)
	}
	for _, rows := range byLot {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Cutoff.Before(rows[j].Cutoff) })
	}
	for key, rec := range ct.Lots {
		for _, row := range byLot[key.Lot] {
			start, ok := h.Index(row.Cutoff)
			if !ok {
				if row.Cutoff.After(h.Date(h.Len() - 1)) {
					continue
				}
				start = 0
			}
			for t := start; t < h.Len(); t++ {
				rec.StoragePerKg[t] = row.CostKg
			}
		}
	}
	return nil
}

func applyPortTariffs(raw *workbook.RawTables, ct *domain.CargoTable, findings *domain.ValidationList) {
	type tariffKey struct{ operator, port, ingredient string }
	direct := make(map[tariffKey]float64)
	warehouse := make(map[tariffKey]float64)
	for _, row := range raw.PortTariffs {
		k := tariffKey{row.Operator, row.Port, row.Ingredient}
		if row.Operation == "directo" {
			direct[k] = row.CostKg
		} else {
			warehouse[k] = row.CostKg
		}
	}
	for key, rec := range ct.Lots {
		k := tariffKey{key.Operator, key.Port, key.Ingredient}
		var okD, okW bool
		rec.DirectPerKg, okD = direct[k]
		rec.WarehousePerKg, okW = warehouse[k]
		if !okD && !okW {
			findings.Warnf("lot %s: no port-operation tariff for (%s, %s, %s), assuming zero",
				key, key.Operator, key.Port, key.Ingredient)
		}
	}
}

func applyFreight(raw *workbook.RawTables, ct *domain.CargoTable, findings *domain.ValidationList) {
	type freightKey struct{ port, operator, ingredient string }
	rates := make(map[freightKey]map[string]float64)
	for _, row := range raw.Freight {
		rates[freightKey{row.Port, row.Operator, row.Ingredient}] = row.PerPlant
	}
	for key, rec := range ct.Lots {
		perPlant, ok := rates[freightKey{key.Port, key.Operator, key.Ingredient}]
		if !ok {
			findings.Warnf("lot %s: no freight-rate row for (%s, %s, %s), lot cannot be dispatched",
				key, key.Port, key.Operator, key.Ingredient)
			continue
		}
		for plant, rate := range perPlant {
			rec.FreightPerKg[plant] = rate
		}
	}
}

// applyTransferMarkup resolves the origin-company markup matrix. Only pairs
// present in the sheet are filled; the cost calculator applies the
// configured policy for absent pairs.
func applyTransferMarkup(raw *workbook.RawTables, ct *domain.CargoTable) {
	matrix := make(map[string]map[string]float64, len(raw.Transfer))
	for _, row := range raw.Transfer {
		matrix[row.Origin] = row.PerDestination
	}
	for key, rec := range ct.Lots {
		perDest, ok := matrix[key.Company]
		if !ok {
			continue
		}
		for dest, fraction := range perDest {
			rec.MarkupFraction[dest] = fraction
		}
	}
}
