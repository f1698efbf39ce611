// Package report renders the solved parameter tables to long-format CSV
// files, the hand-off format for the downstream reporting tooling.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"bulk-dispatch-planner/internal/domain"
)

// WritePlantTable writes the solved plant table: one row per (plant,
// ingredient, variable, period).
func WritePlantTable(path string, pt *domain.PlantTable) error {
	keys := make([]domain.PlantIngredient, 0, len(pt.Records))
	for k := range pt.Records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Plant != keys[j].Plant {
			return keys[i].Plant < keys[j].Plant
		}
		return keys[i].Ingredient < keys[j].Ingredient
	})

	return writeCSV(path, []string{"planta", "ingrediente", "variable", "fecha", "valor"}, func(w *csv.Writer) error {
		for _, key := range keys {
			rec := pt.Records[key]
			series := []struct {
				name   string
				values []float64
			}{
				{"consumo", rec.Consumption},
				{"capacidad", rec.Capacity},
				{"llegadas", rec.Arrivals},
				{"inventario", rec.Inventory},
				{"backorder", rec.Backorder},
				{"faltante_safety_stock", rec.Shortfall},
			}
			for _, s := range series {
				for t, v := range s.values {
					row := []string{
						key.Plant, key.Ingredient, s.name,
						pt.Horizon.Date(t).Format(domain.DateLayout),
						formatValue(v),
					}
					if err := w.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// WriteCargoTable writes the solved cargo table: one row per (lot,
// variable, period).
func WriteCargoTable(path string, ct *domain.CargoTable) error {
	keys := sortedLotKeys(ct)

	return writeCSV(path, []string{"ingrediente", "puerto", "operador", "empresa", "importacion", "variable", "fecha", "valor"}, func(w *csv.Writer) error {
		for _, key := range keys {
			lot := ct.Lots[key]
			series := []struct {
				name   string
				values []float64
			}{
				{"llegadas", lot.Arrivals},
				{"inventario", lot.Inventory},
				{"costo_almacenamiento_kg", lot.StoragePerKg},
			}
			for _, s := range series {
				for t, v := range s.values {
					row := []string{
						key.Ingredient, key.Port, key.Operator, key.Company, key.Lot,
						s.name,
						ct.Horizon.Date(t).Format(domain.DateLayout),
						formatValue(v),
					}
					if err := w.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// WriteDispatchPlan writes the dispatch decisions: one row per (lot, plant,
// period), zero counts included.
func WriteDispatchPlan(path string, ct *domain.CargoTable, truckKg float64) error {
	keys := sortedLotKeys(ct)

	return writeCSV(path, []string{"ingrediente", "puerto", "operador", "empresa", "importacion", "planta", "fecha", "camiones", "kg", "costo"}, func(w *csv.Writer) error {
		for _, key := range keys {
			lot := ct.Lots[key]
			plants := make([]string, 0, len(lot.Dispatch))
			for plant := range lot.Dispatch {
				plants = append(plants, plant)
			}
			sort.Strings(plants)
			for _, plant := range plants {
				costs := lot.TruckCost[plant]
				for t, trucks := range lot.Dispatch[plant] {
					cost := 0.0
					if costs != nil && trucks > 0 {
						cost = costs[t] * trucks
					}
					row := []string{
						key.Ingredient, key.Port, key.Operator, key.Company, key.Lot,
						plant,
						ct.Horizon.Date(t).Format(domain.DateLayout),
						formatValue(trucks),
						formatValue(trucks * truckKg),
						formatValue(cost),
					}
					if err := w.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func sortedLotKeys(ct *domain.CargoTable) []domain.LotKey {
	keys := make([]domain.LotKey, 0, len(ct.Lots))
	for k := range ct.Lots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func writeCSV(path string, headerRow []string, body func(*csv.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(headerRow); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := body(w); err != nil {
		return fmt.Errorf("failed to write rows to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
