package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	Solver  SolverConfig
	Penalty PenaltyConfig
	Phases  PhaseConfig
}

// AppConfig holds the physical planning constants.
type AppConfig struct {
	// TruckCapacityKg is the fixed dispatch granularity.
	TruckCapacityKg float64
	// LeadTimePeriods is how many periods after a dispatch decision the
	// material reaches the plant.
	LeadTimePeriods int
	// PortDailyDischargeKg caps how much of a vessel discharge enters a
	// lot per day.
	PortDailyDischargeKg float64
	// MarkupMissingPolicy is "zero" or "error": what to do when a company
	// pair is absent from the transfer-pricing sheet.
	MarkupMissingPolicy string
	LogLevel            string
	OutputDir           string
}

type SolverConfig struct {
	Provider string
}

// PenaltyConfig carries the service-failure weights. Backorder must
// dominate the safety-stock shortfall, which must dominate any per-truck
// dispatch cost.
type PenaltyConfig struct {
	BackorderPerKg float64
	ShortfallPerKg float64
}

// PhaseConfig carries per-phase wall-clock budgets and relative gaps.
type PhaseConfig struct {
	BalanceSeconds   int
	BalanceGap       float64
	SafetySeconds    int
	SafetyGap        float64
	ReceptionSeconds int
	ReceptionGap     float64
	TargetSeconds    int
	TargetGap        float64
	TargetFractions  []float64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("TRUCK_CAPACITY_KG", 34000.0)
		viper.SetDefault("LEAD_TIME_PERIODS", 2)
		viper.SetDefault("PORT_DAILY_DISCHARGE_KG", 5000000.0)
		viper.SetDefault("MARKUP_MISSING_POLICY", "zero")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("OUTPUT_DIR", "./data/output")

		viper.SetDefault("SOLVER_PROVIDER", "highs")

		viper.SetDefault("PENALTY_BACKORDER_PER_KG", 250000.0)
		viper.SetDefault("PENALTY_SHORTFALL_PER_KG", 50000.0)

		viper.SetDefault("PHASE_BALANCE_SECONDS", 120)
		viper.SetDefault("PHASE_BALANCE_GAP", 0.01)
		viper.SetDefault("PHASE_SAFETY_SECONDS", 180)
		viper.SetDefault("PHASE_SAFETY_GAP", 0.03)
		viper.SetDefault("PHASE_RECEPTION_SECONDS", 240)
		viper.SetDefault("PHASE_RECEPTION_GAP", 0.05)
		viper.SetDefault("PHASE_TARGET_SECONDS", 120)
		viper.SetDefault("PHASE_TARGET_GAP", 0.05)
		viper.SetDefault("PHASE_TARGET_FRACTIONS", "0.25,0.50,0.75,1.00")

		viper.AutomaticEnv()

		instance = &Config{
			App: AppConfig{
				TruckCapacityKg:      viper.GetFloat64("TRUCK_CAPACITY_KG"),
				LeadTimePeriods:      viper.GetInt("LEAD_TIME_PERIODS"),
				PortDailyDischargeKg: viper.GetFloat64("PORT_DAILY_DISCHARGE_KG"),
				MarkupMissingPolicy:  viper.GetString("MARKUP_MISSING_POLICY"),
				LogLevel:             viper.GetString("LOG_LEVEL"),
				OutputDir:            viper.GetString("OUTPUT_DIR"),
			},
			Solver: SolverConfig{
				Provider: viper.GetString("SOLVER_PROVIDER"),
			},
			Penalty: PenaltyConfig{
				BackorderPerKg: viper.GetFloat64("PENALTY_BACKORDER_PER_KG"),
				ShortfallPerKg: viper.GetFloat64("PENALTY_SHORTFALL_PER_KG"),
			},
			Phases: PhaseConfig{
				BalanceSeconds:   viper.GetInt("PHASE_BALANCE_SECONDS"),
				BalanceGap:       viper.GetFloat64("PHASE_BALANCE_GAP"),
				SafetySeconds:    viper.GetInt("PHASE_SAFETY_SECONDS"),
				SafetyGap:        viper.GetFloat64("PHASE_SAFETY_GAP"),
				ReceptionSeconds: viper.GetInt("PHASE_RECEPTION_SECONDS"),
				ReceptionGap:     viper.GetFloat64("PHASE_RECEPTION_GAP"),
				TargetSeconds:    viper.GetInt("PHASE_TARGET_SECONDS"),
				TargetGap:        viper.GetFloat64("PHASE_TARGET_GAP"),
				TargetFractions:  parseFractions(viper.GetString("PHASE_TARGET_FRACTIONS")),
			},
		}
	})

	return instance
}

func parseFractions(s string) []float64 {
	var fractions []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		fractions = append(fractions, v)
	}
	return fractions
}
