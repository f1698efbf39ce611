package domain

import (
	"reflect"
	"testing"
)

func TestPlantsDistinctAndSorted(t *testing.T) {
	pt := &PlantTable{
		Records: map[PlantIngredient]*PlantRecord{
			{Plant: "medellin", Ingredient: "trigo"}: {},
			{Plant: "cali", Ingredient: "trigo"}:     {},
			{Plant: "cali", Ingredient: "maiz"}:      {},
		},
	}

	got := pt.Plants()
	want := []string{"cali", "medellin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plants() = %v, want %v", got, want)
	}
}
