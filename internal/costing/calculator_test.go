package costing

import (
	"strings"
	"testing"
	"time"

	"bulk-dispatch-planner/internal/domain"
)

func testTables(n int) (*domain.PlantTable, *domain.CargoTable, domain.LotKey) {
	h := domain.NewDailyHorizon(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), n)
	key := domain.PlantIngredient{Plant: "cali", Ingredient: "trigo"}
	plants := &domain.PlantTable{
		Horizon: h,
		Records: map[domain.PlantIngredient]*domain.PlantRecord{
			key: {
				Consumption: make([]float64, n),
				Capacity:    make([]float64, n),
				Arrivals:    make([]float64, n),
				Inventory:   make([]float64, n),
				Backorder:   make([]float64, n),
				Shortfall:   make([]float64, n),
			},
		},
		ReceptionMinutes: map[string]float64{"cali": 1080},
		PlantCompany:     map[string]string{"cali": "acme"},
	}
	lotKey := domain.LotKey{Ingredient: "trigo", Port: "buenaventura", Operator: "opb", Company: "acme", Lot: "IMP-001"}
	cargo := &domain.CargoTable{
		Horizon: h,
		Lots: map[domain.LotKey]*domain.LotRecord{
			lotKey: {
				InitialInventory: 100000,
				Arrivals:         make([]float64, n),
				Inventory:        make([]float64, n),
				StoragePerKg:     make([]float64, n),
				DirectWindow:     make([]bool, n),
				CifPerKg:         1500,
				DirectPerKg:      10,
				WarehousePerKg:   25,
				FreightPerKg:     map[string]float64{"cali": 120},
				MarkupFraction:   map[string]float64{},
				TruckCost:        map[string][]float64{},
				Dispatch:         map[string][]float64{},
			},
		},
	}
	return plants, cargo, lotKey
}

func TestPriceDirectVersusWarehousedHandling(t *testing.T) {
	plants, cargo, lotKey := testTables(4)
	lot := cargo.Lots[lotKey]
	lot.DirectWindow[1] = true

	calc := &Calculator{TruckKg: 34000, MarkupPolicy: MarkupDefaultZero}
	if _, err := calc.Price(plants, cargo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	costs := lot.TruckCost["cali"]
	if costs == nil {
		t.Fatal("expected a cost series toward cali")
	}
	// Same company, no storage tariff: freight plus handling only.
	wantWarehoused := (120.0 + 25.0) * 34000
	wantDirect := (120.0 + 10.0) * 34000
	if costs[0] != wantWarehoused {
		t.Fatalf("warehoused cost = %v, want %v", costs[0], wantWarehoused)
	}
	if costs[1] != wantDirect {
		t.Fatalf("direct cost = %v, want %v", costs[1], wantDirect)
	}
}

func TestPriceStorageDiscountCarriesBackward(t *testing.T) {
	plants, cargo, lotKey := testTables(5)
	lot := cargo.Lots[lotKey]
	// Tariff published only from period 3 onward; a truck dispatched
	// earlier still avoids those future fees.
	lot.StoragePerKg[3] = 2.0
	lot.StoragePerKg[4] = 2.0

	calc := &Calculator{TruckKg: 34000, MarkupPolicy: MarkupDefaultZero}
	if _, err := calc.Price(plants, cargo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	costs := lot.TruckCost["cali"]
	base := (120.0 + 25.0) * 34000
	discount := 2.0 * 34000
	for tt := 0; tt < 5; tt++ {
		want := base - discount
		if costs[tt] != want {
			t.Fatalf("cost[%d] = %v, want %v", tt, costs[tt], want)
		}
	}
}

func TestPriceStorageSweepStopsAtLastPublishedTariff(t *testing.T) {
	avoided := storageAvoided([]float64{0, 3, 0, 2, 0})
	want := []float64{3, 3, 2, 2, 0}
	for i := range want {
		if avoided[i] != want[i] {
			t.Fatalf("avoided[%d] = %v, want %v", i, avoided[i], want[i])
		}
	}
}

func TestPriceMissingFreightExcludesPair(t *testing.T) {
	plants, cargo, lotKey := testTables(3)
	lot := cargo.Lots[lotKey]
	delete(lot.FreightPerKg, "cali")

	calc := &Calculator{TruckKg: 34000, MarkupPolicy: MarkupDefaultZero}
	findings, err := calc.Price(plants, cargo)
	if err != nil {
		t.Fatalf("missing freight must not be a fatal error, got: %v", err)
	}
	if _, ok := lot.TruckCost["cali"]; ok {
		t.Fatal("expected no cost series for a pair without a freight rate")
	}
	found := false
	for _, f := range findings {
		if strings.Contains(f.Message, "no freight rate") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an advertencia finding for the excluded pair")
	}
}

func TestPriceInterCompanyMarkup(t *testing.T) {
	plants, cargo, lotKey := testTables(2)
	plants.PlantCompany["cali"] = "otra"
	lot := cargo.Lots[lotKey]
	lot.MarkupFraction["otra"] = 0.05

	calc := &Calculator{TruckKg: 34000, MarkupPolicy: MarkupDefaultZero}
	if _, err := calc.Price(plants, cargo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (120.0+25.0)*34000 + 0.05*1500*34000
	if got := lot.TruckCost["cali"][0]; got != want {
		t.Fatalf("cost with markup = %v, want %v", got, want)
	}
}

func TestPriceMissingMarkupPolicies(t *testing.T) {
	plants, cargo, _ := testTables(2)
	plants.PlantCompany["cali"] = "otra" // pair (acme, otra) absent

	calc := &Calculator{TruckKg: 34000, MarkupPolicy: MarkupError}
	if _, err := calc.Price(plants, cargo); err == nil {
		t.Fatal("expected error under the error policy")
	}

	plants, cargo, lotKey := testTables(2)
	plants.PlantCompany["cali"] = "otra"
	calc = &Calculator{TruckKg: 34000, MarkupPolicy: MarkupDefaultZero}
	findings, err := calc.Price(plants, cargo)
	if err != nil {
		t.Fatalf("unexpected error under the zero policy: %v", err)
	}
	if len(findings) == 0 {
		t.Fatal("expected an advertencia finding under the zero policy")
	}
	want := (120.0 + 25.0) * 34000
	if got := cargo.Lots[lotKey].TruckCost["cali"][0]; got != want {
		t.Fatalf("cost under zero policy = %v, want %v", got, want)
	}
}
