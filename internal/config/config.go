package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Simplici0/printcost/internal/costmodel"
)

const (
	defaultEnv      = "dev"
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultLogLevel = "info"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env        string
	DBPath     string
	Port       string
	APIToken   string
	CostSource costmodel.CostSource
	LogLevel   string

	ElectrolyteThicknessMicrons float64
	MultiplyRepeatedLayers      bool
	HalveAdditionalLayers       bool
	SecondElectrodePass         bool

	// Warnings lists problems found while loading. Load runs before the
	// logger is configured, so callers log them once logging is set up.
	Warnings []string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	if err := loadDotEnv(".env"); err != nil {
		warn("ignoring unreadable .env file: %v", err)
	}

	cfg := Config{
		Env:      strings.ToLower(os.Getenv("APP_ENV")),
		DBPath:   os.Getenv("DB_PATH"),
		Port:     os.Getenv("PORT"),
		APIToken: os.Getenv("API_TOKEN"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		ElectrolyteThicknessMicrons: envFloat("ELECTROLYTE_THICKNESS_MICRONS", costmodel.DefaultElectrolyteThicknessMicrons, warn),
		MultiplyRepeatedLayers:      envBool("MULTIPLY_REPEATED_LAYERS", false, warn),
		HalveAdditionalLayers:       envBool("HALVE_ADDITIONAL_LAYERS", true, warn),
		SecondElectrodePass:         envBool("SECOND_ELECTRODE_PASS", true, warn),
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	source, err := costmodel.ParseCostSource(os.Getenv("COST_SOURCE"))
	if err != nil {
		warn("COST_SOURCE: %v, falling back to cheap materials", err)
		source = costmodel.CheapMaterials
	}
	cfg.CostSource = source

	if cfg.APIToken == "" {
		warn("API_TOKEN is not set, property table writes are disabled")
	}

	cfg.Warnings = warnings
	return cfg
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Policy returns the cost model conventions selected by the configuration.
func (c Config) Policy() costmodel.Policy {
	p := costmodel.DefaultPolicy()
	p.ElectrolyteThicknessMicrons = c.ElectrolyteThicknessMicrons
	p.MultiplyRepeatedLayers = c.MultiplyRepeatedLayers
	p.HalveAdditionalLayers = c.HalveAdditionalLayers
	p.SecondElectrodePass = c.SecondElectrodePass
	return p
}

func envFloat(key string, fallback float64, warn func(string, ...any)) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 1) {
		warn("%s: invalid number %q, using default", key, raw)
		return fallback
	}
	return v
}

func envBool(key string, fallback bool, warn func(string, ...any)) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		warn("%s: invalid boolean %q, using default", key, raw)
		return fallback
	}
	return v
}
