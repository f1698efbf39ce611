package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nextmv-io/sdk/mip"
	"github.com/urfave/cli/v2"

	"bulk-dispatch-planner/internal/config"
	"bulk-dispatch-planner/internal/costing"
	"bulk-dispatch-planner/internal/domain"
	"bulk-dispatch-planner/internal/optimizer"
	"bulk-dispatch-planner/internal/params"
	"bulk-dispatch-planner/internal/report"
	"bulk-dispatch-planner/internal/workbook"
	"bulk-dispatch-planner/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "planner",
		Usage: "plan multi-period dispatch of bulk ingredients from port lots to plants",
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "run the full pipeline on one planning workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "workbook",
						Usage:    "Path to the input workbook (xlsx)",
						Required: true,
						EnvVars:  []string{"PLANNER_WORKBOOK"},
					},
					&cli.StringFlag{
						Name:    "out",
						Usage:   "Output directory for the solved tables",
						EnvVars: []string{"PLANNER_OUTPUT_DIR"},
					},
					&cli.BoolFlag{
						Name:  "validate-only",
						Usage: "Normalize and validate, then exit without solving",
					},
				},
				Action: runPlan,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}

func runPlan(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)
	log := logger.Component("planner")

	outDir := c.String("out")
	if outDir == "" {
		outDir = cfg.App.OutputDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	start := time.Now()
	raw, err := workbook.Load(c.String("workbook"))
	if err != nil {
		return err
	}
	log.Info().Str("workbook", c.String("workbook")).Msg("workbook loaded")

	horizon, err := params.HorizonFromConsumption(raw)
	if err != nil {
		return err
	}
	log.Info().
		Str("from", horizon.Date(0).Format(domain.DateLayout)).
		Str("to", horizon.Date(horizon.Len()-1).Format(domain.DateLayout)).
		Int("periods", horizon.Len()).
		Msg("planning horizon")

	plants, cargo, findings, err := params.Normalize(raw, horizon, params.Options{
		TruckKg:              cfg.App.TruckCapacityKg,
		PortDailyDischargeKg: cfg.App.PortDailyDischargeKg,
	})
	if err != nil {
		reportFindings(findings)
		return fmt.Errorf("normalization failed: %w", err)
	}

	calc := &costing.Calculator{
		TruckKg:      cfg.App.TruckCapacityKg,
		MarkupPolicy: costing.MarkupPolicy(cfg.App.MarkupMissingPolicy),
	}
	log.Info().
		Strs("plants", plants.Plants()).
		Int("series", len(plants.Records)).
		Int("lots", len(cargo.Lots)).
		Msg("parameters normalized")

	costFindings, err := calc.Price(plants, cargo)
	findings = append(findings, costFindings...)
	reportFindings(findings)
	if err != nil {
		return fmt.Errorf("costing failed: %w", err)
	}
	if findings.HasCritical() {
		return fmt.Errorf("critico-level validation findings present, fix the workbook before solving")
	}
	if c.Bool("validate-only") {
		log.Info().Msg("validation finished, skipping solve")
		return nil
	}

	solver := &optimizer.StagedSolver{
		Builder: &optimizer.Builder{
			TruckKg:          cfg.App.TruckCapacityKg,
			LeadTime:         cfg.App.LeadTimePeriods,
			BackorderPenalty: cfg.Penalty.BackorderPerKg,
			ShortfallPenalty: cfg.Penalty.ShortfallPerKg,
		},
		Provider: mip.SolverProvider(cfg.Solver.Provider),
		Phases: optimizer.PhasePlan{
			BalanceDuration:   time.Duration(cfg.Phases.BalanceSeconds) * time.Second,
			BalanceGap:        cfg.Phases.BalanceGap,
			SafetyDuration:    time.Duration(cfg.Phases.SafetySeconds) * time.Second,
			SafetyGap:         cfg.Phases.SafetyGap,
			ReceptionDuration: time.Duration(cfg.Phases.ReceptionSeconds) * time.Second,
			ReceptionGap:      cfg.Phases.ReceptionGap,
			TargetDuration:    time.Duration(cfg.Phases.TargetSeconds) * time.Second,
			TargetGap:         cfg.Phases.TargetGap,
			TargetFractions:   cfg.Phases.TargetFractions,
		}.Phases(),
	}

	solution, err := solver.Run(c.Context, plants, cargo)
	if err != nil {
		return fmt.Errorf("staged solve failed: %w", err)
	}
	optimizer.Extract(solution, plants, cargo)

	outputs := map[string]func(string) error{
		"plant_table.csv": func(p string) error { return report.WritePlantTable(p, plants) },
		"cargo_table.csv": func(p string) error { return report.WriteCargoTable(p, cargo) },
		"dispatch_plan.csv": func(p string) error {
			return report.WriteDispatchPlan(p, cargo, cfg.App.TruckCapacityKg)
		},
	}
	for name, write := range outputs {
		path := filepath.Join(outDir, name)
		if err := write(path); err != nil {
			return err
		}
		log.Info().Str("file", path).Msg("report written")
	}

	log.Info().
		Str("phase", solution.Phase).
		Float64("objective", solution.Objective).
		Dur("elapsed", time.Since(start)).
		Msg("plan complete")
	return nil
}

func reportFindings(findings domain.ValidationList) {
	log := logger.Component("validation")
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			log.Error().Str("severity", f.Severity).Msg(f.Message)
		} else {
			log.Warn().Str("severity", f.Severity).Msg(f.Message)
		}
	}
	if counts := findings.CountBySeverity(); len(counts) > 0 {
		log.Info().
			Int(domain.SeverityWarning, counts[domain.SeverityWarning]).
			Int(domain.SeverityCritical, counts[domain.SeverityCritical]).
			Msg("validation findings")
	}
}
