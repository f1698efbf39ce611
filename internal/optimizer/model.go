// Package optimizer builds the time-indexed network-flow MILP for the
// distribution plan and solves it in staged phases.
package optimizer

import (
	"math"

	"github.com/nextmv-io/sdk/mip"

	"bulk-dispatch-planner/internal/domain"
)

// LotPeriodKey addresses one lot's port inventory at the end of a period.
type LotPeriodKey struct {
	Lot    domain.LotKey
	Period int
}

// PlantPeriodKey addresses one plant/ingredient series value at a period.
type PlantPeriodKey struct {
	Plant      string
	Ingredient string
	Period     int
}

// DispatchKey addresses the truck count dispatched from a lot to a plant,
// decided at a period. The material arrives at Period + lead time.
type DispatchKey struct {
	Lot    domain.LotKey
	Plant  string
	Period int
}

// Families toggles the constraint families of the parameterized model. The
// balance constraints are always present; the staged solver enables the
// rest one phase at a time.
type Families struct {
	SafetyStock       bool
	ReceptionCapacity bool
	InventoryTarget   bool
	// TargetFraction scales the end-of-horizon inventory requirement,
	// letting the solver tighten it progressively.
	TargetFraction float64
}

// Builder assembles the MILP from the normalized tables. One builder
// produces every phase variant; constraint families are toggled per call.
type Builder struct {
	// TruckKg is the fixed truck capacity; all port→plant flow is an
	// integer count of trucks of this size.
	TruckKg float64
	// LeadTime is the number of periods between a dispatch decision and
	// the material's arrival at the plant.
	LeadTime int
	// BackorderPenalty and ShortfallPenalty are per-kg-per-day objective
	// weights. BackorderPenalty must dominate ShortfallPenalty, which in
	// turn must dominate any single per-truck dispatch cost, so the solver
	// exhausts service-level options before tolerating shortage.
	BackorderPenalty float64
	ShortfallPenalty float64
}

// Model is one built phase instance: the mip model plus struct-keyed
// variable handles, retained so solved values can be read back without
// parsing generated variable names.
type Model struct {
	mip mip.Model

	portInv   map[LotPeriodKey]mip.Float
	plantInv  map[PlantPeriodKey]mip.Float
	dispatch  map[DispatchKey]mip.Int
	backorder map[PlantPeriodKey]mip.Float
	shortfall map[PlantPeriodKey]mip.Float

	constraints int
}

// VariableCount returns the number of decision variables declared.
func (m *Model) VariableCount() int {
	return len(m.portInv) + len(m.plantInv) + len(m.dispatch) + len(m.backorder) + len(m.shortfall)
}

// ConstraintCount returns the number of constraints emitted.
func (m *Model) ConstraintCount() int { return m.constraints }

// Build declares variables and constraints for the requested families and
// assembles the weighted objective.
func (b *Builder) Build(plants *domain.PlantTable, cargo *domain.CargoTable, fam Families) *Model {
	n := plants.Horizon.Len()
	m := &Model{
		mip:       mip.NewModel(),
		portInv:   make(map[LotPeriodKey]mip.Float),
		plantInv:  make(map[PlantPeriodKey]mip.Float),
		dispatch:  make(map[DispatchKey]mip.Int),
		backorder: make(map[PlantPeriodKey]mip.Float),
		shortfall: make(map[PlantPeriodKey]mip.Float),
	}
	m.mip.Objective().SetMinimize()

	// Dispatch decided at t lands on the plant's balance at t+lead; the
	// variables are bucketed against their arrival period at creation
	// time, never re-indexed later.
	type receptionTerm struct {
		v       mip.Int
		minutes float64
	}
	type receptionKey struct {
		plant  string
		period int
	}
	arrivalsAt := make(map[PlantPeriodKey][]mip.Int)
	dispatchedFrom := make(map[LotPeriodKey][]mip.Int)
	reception := make(map[receptionKey][]receptionTerm)

	lastDecision := n - 1 - b.LeadTime

	for lotKey, lot := range cargo.Lots {
		lotTrucks := int64(math.Floor(lot.TotalAvailable() / b.TruckKg))
		for plant, costs := range lot.TruckCost {
			rec := plants.Records[domain.PlantIngredient{Plant: plant, Ingredient: lotKey.Ingredient}]
			if rec == nil {
				continue
			}
			for t := 0; t <= lastDecision; t++ {
				ub := dispatchBound(lotTrucks, rec, plants.ReceptionMinutes[plant], t+b.LeadTime, b.TruckKg)
				if ub <= 0 {
					continue
				}
				v := m.mip.NewInt(0, ub)
				m.dispatch[DispatchKey{Lot: lotKey, Plant: plant, Period: t}] = v
				m.mip.Objective().NewTerm(costs[t], v)

				arrival := PlantPeriodKey{Plant: plant, Ingredient: lotKey.Ingredient, Period: t + b.LeadTime}
				arrivalsAt[arrival] = append(arrivalsAt[arrival], v)
				from := LotPeriodKey{Lot: lotKey, Period: t}
				dispatchedFrom[from] = append(dispatchedFrom[from], v)
				rk := receptionKey{plant: plant, period: t}
				reception[rk] = append(reception[rk], receptionTerm{v: v, minutes: rec.MinutesPerTruck})
			}
		}
	}

	b.buildPortSide(m, cargo, dispatchedFrom)
	b.buildPlantSide(m, plants, arrivalsAt, fam)

	if fam.ReceptionCapacity {
		for rk, terms := range reception {
			// Plant/period pairs with no candidate dispatch get no
			// constraint at all rather than a vacuous one.
			if len(terms) == 0 {
				continue
			}
			c := m.mip.NewConstraint(mip.LessThanOrEqual, plants.ReceptionMinutes[rk.plant])
			for _, term := range terms {
				c.NewTerm(term.minutes, term.v)
			}
			m.constraints++
		}
	}

	return m
}

// dispatchBound is the truck-count ceiling for one dispatch variable:
// whichever of the plant's reception time, the lot's total available
// material, or the plant's storage capacity at the arrival period binds
// first.
func dispatchBound(lotTrucks int64, rec *domain.PlantRecord, receptionMinutes float64, arrivalPeriod int, truckKg float64) int64 {
	ub := lotTrucks
	if rec.MinutesPerTruck > 0 {
		timeTrucks := int64(math.Floor(receptionMinutes / rec.MinutesPerTruck))
		if timeTrucks < ub {
			ub = timeTrucks
		}
	}
	capTrucks := int64(math.Floor(rec.Capacity[arrivalPeriod] / truckKg))
	if capTrucks < ub {
		ub = capTrucks
	}
	return ub
}

func (b *Builder) buildPortSide(m *Model, cargo *domain.CargoTable, dispatchedFrom map[LotPeriodKey][]mip.Int) {
	n := cargo.Horizon.Len()
	for lotKey, lot := range cargo.Lots {
		available := lot.TotalAvailable()
		for t := 0; t < n; t++ {
			key := LotPeriodKey{Lot: lotKey, Period: t}
			inv := m.mip.NewFloat(0, available)
			m.portInv[key] = inv
			if lot.StoragePerKg[t] > 0 {
				m.mip.Objective().NewTerm(lot.StoragePerKg[t], inv)
			}

			// inv[t] == inv[t-1] + arrivals[t] - truckKg * sum(dispatch[t])
			rhs := lot.Arrivals[t]
			if t == 0 {
				rhs += lot.InitialInventory
			}
			c := m.mip.NewConstraint(mip.Equal, rhs)
			c.NewTerm(1, inv)
			if t > 0 {
				c.NewTerm(-1, m.portInv[LotPeriodKey{Lot: lotKey, Period: t - 1}])
			}
			for _, v := range dispatchedFrom[key] {
				c.NewTerm(b.TruckKg, v)
			}
			m.constraints++
		}
	}
}

func (b *Builder) buildPlantSide(m *Model, plants *domain.PlantTable, arrivalsAt map[PlantPeriodKey][]mip.Int, fam Families) {
	n := plants.Horizon.Len()
	for piKey, rec := range plants.Records {
		// The shortfall variable only exists where the target is actually
		// attainable; a target above capacity would make the constraint
		// permanently binding and the phase infeasible.
		wantShortfall := fam.SafetyStock && rec.SafetyStockKg > 0 && rec.Capacity[0] > rec.SafetyStockKg

		for t := 0; t < n; t++ {
			key := PlantPeriodKey{Plant: piKey.Plant, Ingredient: piKey.Ingredient, Period: t}

			// Inconsistent inputs can project inventory above capacity;
			// the bound takes the larger of the two so the seed state
			// stays feasible.
			ub := rec.Capacity[t]
			if rec.Inventory[t] > ub {
				ub = rec.Inventory[t]
			}
			inv := m.mip.NewFloat(0, ub)
			m.plantInv[key] = inv

			// inv[t] == inv[t-1] + arrivals[t] + truckKg*dispatch_arriving
			//           - consumption[t] + backorder[t]
			rhs := rec.Arrivals[t] - rec.Consumption[t]
			if t == 0 {
				rhs += rec.InitialInventory
			}
			c := m.mip.NewConstraint(mip.Equal, rhs)
			c.NewTerm(1, inv)
			if t > 0 {
				c.NewTerm(-1, m.plantInv[PlantPeriodKey{Plant: piKey.Plant, Ingredient: piKey.Ingredient, Period: t - 1}])
			}
			for _, v := range arrivalsAt[key] {
				c.NewTerm(-b.TruckKg, v)
			}
			if rec.Consumption[t] > 0 {
				back := m.mip.NewFloat(0, rec.Consumption[t])
				m.backorder[key] = back
				m.mip.Objective().NewTerm(b.BackorderPenalty, back)
				c.NewTerm(-1, back)
			}
			m.constraints++

			if wantShortfall {
				short := m.mip.NewFloat(0, rec.SafetyStockKg)
				m.shortfall[key] = short
				m.mip.Objective().NewTerm(b.ShortfallPenalty, short)

				// inv[t] + shortfall[t] >= safety target
				sc := m.mip.NewConstraint(mip.GreaterThanOrEqual, rec.SafetyStockKg)
				sc.NewTerm(1, inv)
				sc.NewTerm(1, short)
				m.constraints++
			}
		}

		if fam.InventoryTarget && rec.TargetKg > 0 {
			tc := m.mip.NewConstraint(mip.GreaterThanOrEqual, fam.TargetFraction*rec.TargetKg)
			tc.NewTerm(1, m.plantInv[PlantPeriodKey{Plant: piKey.Plant, Ingredient: piKey.Ingredient, Period: n - 1}])
			m.constraints++
		}
	}
}
