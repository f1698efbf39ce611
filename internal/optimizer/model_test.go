package optimizer

import (
	"testing"
	"time"

	"bulk-dispatch-planner/internal/domain"
)

func testBuilder() *Builder {
	return &Builder{
		TruckKg:          34000,
		LeadTime:         2,
		BackorderPenalty: 250000,
		ShortfallPenalty: 50000,
	}
}

// scenarioTables is one plant consuming 1000 kg/day of one ingredient over
// n periods, fed by one port lot, everything costed.
func scenarioTables(n int, lotKg float64) (*domain.PlantTable, *domain.CargoTable, domain.LotKey) {
	h := domain.NewDailyHorizon(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), n)
	key := domain.PlantIngredient{Plant: "cali", Ingredient: "trigo"}
	rec := &domain.PlantRecord{
		Consumption:     make([]float64, n),
		Capacity:        make([]float64, n),
		Arrivals:        make([]float64, n),
		Inventory:       make([]float64, n),
		Backorder:       make([]float64, n),
		Shortfall:       make([]float64, n),
		MinutesPerTruck: 45,
		SafetyStockKg:   3000,
		TargetKg:        3000,
	}
	for t := 0; t < n; t++ {
		rec.Consumption[t] = 1000
		rec.Capacity[t] = 120000
	}
	plants := &domain.PlantTable{
		Horizon:          h,
		Records:          map[domain.PlantIngredient]*domain.PlantRecord{key: rec},
		ReceptionMinutes: map[string]float64{"cali": 1080},
		PlantCompany:     map[string]string{"cali": "acme"},
	}

	lotKey := domain.LotKey{Ingredient: "trigo", Port: "buenaventura", Operator: "opb", Company: "acme", Lot: "IMP-001"}
	costs := make([]float64, n)
	for t := range costs {
		costs[t] = 4930000
	}
	cargo := &domain.CargoTable{
		Horizon: h,
		Lots: map[domain.LotKey]*domain.LotRecord{
			lotKey: {
				InitialInventory: lotKg,
				Arrivals:         make([]float64, n),
				Inventory:        make([]float64, n),
				StoragePerKg:     make([]float64, n),
				DirectWindow:     make([]bool, n),
				CifPerKg:         1500,
				FreightPerKg:     map[string]float64{"cali": 120},
				MarkupFraction:   map[string]float64{},
				TruckCost:        map[string][]float64{"cali": costs},
				Dispatch:         map[string][]float64{},
			},
		},
	}
	return plants, cargo, lotKey
}

func TestBuildDispatchWindowRespectsLeadTime(t *testing.T) {
	plants, cargo, lotKey := scenarioTables(10, 40000)
	m := testBuilder().Build(plants, cargo, Families{})

	// Lead time 2 over 10 periods: decisions only at t = 0..7.
	for tt := 0; tt <= 7; tt++ {
		if _, ok := m.dispatch[DispatchKey{Lot: lotKey, Plant: "cali", Period: tt}]; !ok {
			t.Fatalf("expected dispatch variable at period %d", tt)
		}
	}
	for tt := 8; tt < 10; tt++ {
		if _, ok := m.dispatch[DispatchKey{Lot: lotKey, Plant: "cali", Period: tt}]; ok {
			t.Fatalf("unexpected dispatch variable at period %d", tt)
		}
	}
	if len(m.dispatch) != 8 {
		t.Fatalf("dispatch variables = %d, want 8", len(m.dispatch))
	}
}

func TestBuildBalanceVariableCoverage(t *testing.T) {
	plants, cargo, _ := scenarioTables(10, 40000)
	m := testBuilder().Build(plants, cargo, Families{})

	if len(m.portInv) != 10 {
		t.Fatalf("port inventory variables = %d, want 10", len(m.portInv))
	}
	if len(m.plantInv) != 10 {
		t.Fatalf("plant inventory variables = %d, want 10", len(m.plantInv))
	}
	// Every period consumes, so every period carries a backorder variable.
	if len(m.backorder) != 10 {
		t.Fatalf("backorder variables = %d, want 10", len(m.backorder))
	}
	// Balance only: no shortfall variables yet.
	if len(m.shortfall) != 0 {
		t.Fatalf("shortfall variables = %d, want 0", len(m.shortfall))
	}
	// One port and one plant balance row per period.
	if m.ConstraintCount() != 20 {
		t.Fatalf("constraints = %d, want 20", m.ConstraintCount())
	}
}

func TestBuildSubTruckLotGetsNoDispatch(t *testing.T) {
	plants, cargo, lotKey := scenarioTables(10, 10000)
	m := testBuilder().Build(plants, cargo, Families{})

	for key := range m.dispatch {
		if key.Lot == lotKey {
			t.Fatalf("unexpected dispatch variable for sub-truck lot at period %d", key.Period)
		}
	}
}

func TestBuildSafetyStockFamily(t *testing.T) {
	plants, cargo, _ := scenarioTables(10, 40000)
	m := testBuilder().Build(plants, cargo, Families{SafetyStock: true})

	if len(m.shortfall) != 10 {
		t.Fatalf("shortfall variables = %d, want 10", len(m.shortfall))
	}
	// Balance rows plus one safety-stock row per period.
	if m.ConstraintCount() != 30 {
		t.Fatalf("constraints = %d, want 30", m.ConstraintCount())
	}
}

func TestBuildShortfallSkippedWhenTargetExceedsCapacity(t *testing.T) {
	plants, cargo, _ := scenarioTables(10, 40000)
	rec := plants.Records[domain.PlantIngredient{Plant: "cali", Ingredient: "trigo"}]
	rec.SafetyStockKg = 200000 // above the 120,000 kg capacity
	m := testBuilder().Build(plants, cargo, Families{SafetyStock: true})

	if len(m.shortfall) != 0 {
		t.Fatalf("shortfall variables = %d, want 0 for an unattainable target", len(m.shortfall))
	}
}

func TestBuildReceptionCapacityOmitsVacuousRows(t *testing.T) {
	plants, cargo, _ := scenarioTables(10, 40000)
	balance := testBuilder().Build(plants, cargo, Families{})
	withReception := testBuilder().Build(plants, cargo, Families{ReceptionCapacity: true})

	// Eight decision periods with candidates, so exactly eight rows join.
	if got := withReception.ConstraintCount() - balance.ConstraintCount(); got != 8 {
		t.Fatalf("reception constraints added = %d, want 8", got)
	}

	// With no dispatch candidates at all there is nothing to constrain.
	empty, emptyCargo, _ := scenarioTables(10, 10000)
	m := testBuilder().Build(empty, emptyCargo, Families{ReceptionCapacity: true})
	if m.ConstraintCount() != 20 {
		t.Fatalf("constraints = %d, want 20 (no vacuous reception rows)", m.ConstraintCount())
	}
}

func TestBuildInventoryTargetFamily(t *testing.T) {
	plants, cargo, _ := scenarioTables(10, 40000)
	without := testBuilder().Build(plants, cargo, Families{SafetyStock: true, ReceptionCapacity: true})
	with := testBuilder().Build(plants, cargo, Families{
		SafetyStock: true, ReceptionCapacity: true,
		InventoryTarget: true, TargetFraction: 0.5,
	})
	if got := with.ConstraintCount() - without.ConstraintCount(); got != 1 {
		t.Fatalf("target constraints added = %d, want 1", got)
	}
}

func TestBuildNoDispatchPastHorizonForShortHorizon(t *testing.T) {
	// A horizon no longer than the lead time leaves no decision window.
	plants, cargo, _ := scenarioTables(2, 40000)
	m := testBuilder().Build(plants, cargo, Families{})
	if len(m.dispatch) != 0 {
		t.Fatalf("dispatch variables = %d, want 0", len(m.dispatch))
	}
}
