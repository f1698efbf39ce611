package optimizer

import "bulk-dispatch-planner/internal/domain"

// Extract writes the accepted solution back into the normalized tables,
// replacing the projection placeholders the normalizer seeded. Every
// variable is written, zero-valued dispatches included, so the tables leave
// in their final solved state.
func Extract(sol *Solution, plants *domain.PlantTable, cargo *domain.CargoTable) {
	n := plants.Horizon.Len()

	for key, rec := range plants.Records {
		for t := 0; t < n; t++ {
			rec.Inventory[t] = 0
			rec.Backorder[t] = 0
			rec.Shortfall[t] = 0
		}
		for t := 0; t < n; t++ {
			pk := PlantPeriodKey{Plant: key.Plant, Ingredient: key.Ingredient, Period: t}
			if v, ok := sol.PlantInv[pk]; ok {
				rec.Inventory[t] = v
			}
			if v, ok := sol.Backorder[pk]; ok {
				rec.Backorder[t] = v
			}
			if v, ok := sol.Shortfall[pk]; ok {
				rec.Shortfall[t] = v
			}
		}
	}

	for lotKey, lot := range cargo.Lots {
		for t := 0; t < n; t++ {
			lot.Inventory[t] = 0
			lk := LotPeriodKey{Lot: lotKey, Period: t}
			if v, ok := sol.PortInv[lk]; ok {
				lot.Inventory[t] = v
			}
		}
		// A costed destination with no dispatch variable (or a zero solved
		// count) still gets an explicit zero series.
		for plant := range lot.TruckCost {
			series := make([]float64, n)
			for t := 0; t < n; t++ {
				if v, ok := sol.Dispatch[DispatchKey{Lot: lotKey, Plant: plant, Period: t}]; ok {
					series[t] = v
				}
			}
			lot.Dispatch[plant] = series
		}
	}
}
