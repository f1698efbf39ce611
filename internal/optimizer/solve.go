package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/nextmv-io/sdk/mip"

	"bulk-dispatch-planner/internal/domain"
	"bulk-dispatch-planner/pkg/logger"
)

// Phase is one step of the staged solve: a family set, a wall-clock budget
// and a relative optimality gap. Optional phases that find no incumbent are
// discarded; required phases that find none abort the whole solve.
type Phase struct {
	Name        string
	Families    Families
	MaxDuration time.Duration
	// Gap is the relative MIP gap tolerance, as a fraction.
	Gap      float64
	Optional bool
}

// PhasePlan configures the default staged schedule.
type PhasePlan struct {
	BalanceDuration   time.Duration
	BalanceGap        float64
	SafetyDuration    time.Duration
	SafetyGap         float64
	ReceptionDuration time.Duration
	ReceptionGap      float64
	TargetDuration    time.Duration
	TargetGap         float64
	// TargetFractions are the progressive end-of-horizon tightenings,
	// e.g. 0.25, 0.5, 0.75, 1.0. Empty disables the target phases.
	TargetFractions []float64
}

// Phases expands the plan into the ordered phase list. Each phase adds one
// constraint family on top of the previous one; the gap widens as the model
// hardens.
func (p PhasePlan) Phases() []Phase {
	phases := []Phase{
		{
			Name:        "balance",
			Families:    Families{},
			MaxDuration: p.BalanceDuration,
			Gap:         p.BalanceGap,
		},
		{
			Name:        "safety_stock",
			Families:    Families{SafetyStock: true},
			MaxDuration: p.SafetyDuration,
			Gap:         p.SafetyGap,
		},
		{
			Name:        "reception_capacity",
			Families:    Families{SafetyStock: true, ReceptionCapacity: true},
			MaxDuration: p.ReceptionDuration,
			Gap:         p.ReceptionGap,
		},
	}
	for _, fraction := range p.TargetFractions {
		phases = append(phases, Phase{
			Name: fmt.Sprintf("inventory_target_%d", int(fraction*100)),
			Families: Families{
				SafetyStock:       true,
				ReceptionCapacity: true,
				InventoryTarget:   true,
				TargetFraction:    fraction,
			},
			MaxDuration: p.TargetDuration,
			Gap:         p.TargetGap,
			Optional:    true,
		})
	}
	return phases
}

// Solution is the accepted incumbent of the last successful phase,
// snapshotted by structured key.
type Solution struct {
	Phase     string
	Optimal   bool
	Objective float64
	Runtime   time.Duration

	PortInv   map[LotPeriodKey]float64
	PlantInv  map[PlantPeriodKey]float64
	Dispatch  map[DispatchKey]float64
	Backorder map[PlantPeriodKey]float64
	Shortfall map[PlantPeriodKey]float64
}

// StagedSolver runs the phases strictly in order, rebuilding the
// parameterized model with the accumulated family set each time and keeping
// the best incumbent across phases.
type StagedSolver struct {
	Builder  *Builder
	Provider mip.SolverProvider
	Phases   []Phase
}

// Run executes every phase. A required phase without a feasible incumbent
// aborts the solve; a failed optional tightening stops the remaining
// tightenings and keeps the incumbent of the last accepted phase.
func (s *StagedSolver) Run(ctx context.Context, plants *domain.PlantTable, cargo *domain.CargoTable) (*Solution, error) {
	log := logger.Component("optimizer")
	var best *Solution
	for _, phase := range s.Phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("solve cancelled before phase %s: %w", phase.Name, err)
		}

		model := s.Builder.Build(plants, cargo, phase.Families)
		log.Info().
			Str("phase", phase.Name).
			Int("variables", model.VariableCount()).
			Int("constraints", model.ConstraintCount()).
			Dur("max_duration", phase.MaxDuration).
			Float64("gap", phase.Gap).
			Msg("solving phase")

		sol, err := s.solvePhase(model, phase)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", phase.Name, err)
		}
		if sol == nil {
			if phase.Optional {
				log.Warn().
					Str("phase", phase.Name).
					Msg("no feasible incumbent, discarding tightening")
				break
			}
			return nil, fmt.Errorf("phase %s: no feasible solution within its time budget", phase.Name)
		}

		log.Info().
			Str("phase", phase.Name).
			Bool("optimal", sol.Optimal).
			Float64("objective", sol.Objective).
			Dur("runtime", sol.Runtime).
			Msg("phase accepted")
		best = sol
	}
	if best == nil {
		return nil, fmt.Errorf("no phases configured")
	}
	return best, nil
}

// solvePhase runs one solver invocation. A nil solution with nil error
// means the phase produced no feasible incumbent.
func (s *StagedSolver) solvePhase(model *Model, phase Phase) (*Solution, error) {
	solver, err := mip.NewSolver(s.Provider, model.mip)
	if err != nil {
		return nil, err
	}

	opts := mip.NewSolveOptions()
	if err := opts.SetMaximumDuration(phase.MaxDuration); err != nil {
		return nil, err
	}
	if err := opts.SetMIPGapRelative(phase.Gap); err != nil {
		return nil, err
	}
	opts.SetVerbosity(mip.Off)

	solution, err := solver.Solve(opts)
	if err != nil {
		return nil, err
	}
	if solution == nil || !solution.HasValues() {
		return nil, nil
	}

	return snapshot(model, solution, phase.Name), nil
}

// snapshot copies every solved variable value out of the solver, keyed by
// the structured keys retained at build time.
func snapshot(model *Model, solution mip.Solution, phase string) *Solution {
	sol := &Solution{
		Phase:     phase,
		Optimal:   solution.IsOptimal(),
		Objective: solution.ObjectiveValue(),
		Runtime:   solution.RunTime(),
		PortInv:   make(map[LotPeriodKey]float64, len(model.portInv)),
		PlantInv:  make(map[PlantPeriodKey]float64, len(model.plantInv)),
		Dispatch:  make(map[DispatchKey]float64, len(model.dispatch)),
		Backorder: make(map[PlantPeriodKey]float64, len(model.backorder)),
		Shortfall: make(map[PlantPeriodKey]float64, len(model.shortfall)),
	}
	for k, v := range model.portInv {
		sol.PortInv[k] = solution.Value(v)
	}
	for k, v := range model.plantInv {
		sol.PlantInv[k] = solution.Value(v)
	}
	for k, v := range model.dispatch {
		sol.Dispatch[k] = solution.Value(v)
	}
	for k, v := range model.backorder {
		sol.Backorder[k] = solution.Value(v)
	}
	for k, v := range model.shortfall {
		sol.Shortfall[k] = solution.Value(v)
	}
	return sol
}
