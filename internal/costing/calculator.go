// Package costing derives the per-truck dispatch cost table the objective
// function consumes: freight, port handling, inter-company transfer markup
// and the avoided future storage fees, composed per (lot, plant, period).
package costing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bulk-dispatch-planner/internal/domain"
)

// MarkupPolicy decides what happens when a (origin company, destination
// company) pair is absent from the transfer-pricing sheet.
type MarkupPolicy string

const (
	// MarkupDefaultZero substitutes a zero markup and records a warning.
	MarkupDefaultZero MarkupPolicy = "zero"
	// MarkupError aborts costing on the first absent pair.
	MarkupError MarkupPolicy = "error"
)

// Calculator composes per-truck dispatch costs. Tariffs are composed with
// decimal arithmetic and rounded to whole pesos per truck, so the same
// workbook always yields the same coefficient table.
type Calculator struct {
	TruckKg      float64
	MarkupPolicy MarkupPolicy
}

// Price fills TruckCost on every lot for every destination plant that
// consumes the lot's ingredient. Lots with no freight rate toward a plant
// are left without a cost row for that plant and are thereby excluded from
// dispatch-variable creation.
func (c *Calculator) Price(plants *domain.PlantTable, cargo *domain.CargoTable) (domain.ValidationList, error) {
	var findings domain.ValidationList
	n := cargo.Horizon.Len()
	truckKg := decimal.NewFromFloat(c.TruckKg)

	for lotKey, lot := range cargo.Lots {
		avoided := storageAvoided(lot.StoragePerKg)

		for plantKey := range plants.Records {
			if plantKey.Ingredient != lotKey.Ingredient {
				continue
			}
			plant := plantKey.Plant

			freight, ok := lot.FreightPerKg[plant]
			if !ok {
				findings.Warnf("lot %s: no freight rate toward plant %s, pair excluded from dispatch",
					lotKey, plant)
				continue
			}

			markup, err := c.markupFor(lotKey, lot, plants.PlantCompany[plant], &findings)
			if err != nil {
				return findings, err
			}

			freightDec := decimal.NewFromFloat(freight)
			markupDec := decimal.NewFromFloat(markup).Mul(decimal.NewFromFloat(lot.CifPerKg))
			directDec := decimal.NewFromFloat(lot.DirectPerKg)
			warehouseDec := decimal.NewFromFloat(lot.WarehousePerKg)

			costs := make([]float64, n)
			for t := 0; t < n; t++ {
				handling := warehouseDec
				if lot.DirectWindow[t] {
					handling = directDec
				}
				perKg := freightDec.Add(handling).Add(markupDec)
				total := perKg.Mul(truckKg).Sub(decimal.NewFromFloat(avoided[t]).Mul(truckKg))
				costs[t] = total.Round(0).InexactFloat64()
			}
			lot.TruckCost[plant] = costs
		}
	}

	return findings, nil
}

func (c *Calculator) markupFor(lotKey domain.LotKey, lot *domain.LotRecord, destCompany string, findings *domain.ValidationList) (float64, error) {
	if lotKey.Company == destCompany {
		// Intra-company moves carry no transfer markup.
		return 0, nil
	}
	if markup, ok := lot.MarkupFraction[destCompany]; ok {
		return markup, nil
	}
	switch c.MarkupPolicy {
	case MarkupError:
		return 0, fmt.Errorf("no transfer markup for company pair (%s, %s) on lot %s",
			lotKey.Company, destCompany, lotKey)
	default:
		findings.Warnf("lot %s: no transfer markup for company pair (%s, %s), assuming zero",
			lotKey, lotKey.Company, destCompany)
		return 0, nil
	}
}

// storageAvoided returns, per period, the storage fee per kg a dispatched
// unit stops accruing: a backward sweep that carries the most recent
// non-zero published tariff from the horizon end toward period zero.
func storageAvoided(storagePerKg []float64) []float64 {
	avoided := make([]float64, len(storagePerKg))
	carry := 0.0
	for t := len(storagePerKg) - 1; t >= 0; t-- {
		if storagePerKg[t] > 0 {
			carry = storagePerKg[t]
		}
		avoided[t] = carry
	}
	return avoided
}
