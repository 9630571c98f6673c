// Package config loads the process-lifetime-immutable configuration
// spec §9 describes: trust weights, risk thresholds, model weights,
// session timeout, and decay parameters, layered under secrets taken
// from the environment. Mirrors the teacher's pattern of a thin
// godotenv load in main() feeding a typed Config struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type TrustWeights struct {
	Behavioral  float64 `toml:"behavioral"`
	Temporal    float64 `toml:"temporal"`
	Context     float64 `toml:"context"`
	Historical  float64 `toml:"historical"`
	AnomalyFreq float64 `toml:"anomaly_freq"`
}

type RiskThresholds struct {
	Low    float64 `toml:"low"`
	Medium float64 `toml:"medium"`
	High   float64 `toml:"high"`
}

type ModelWeights struct {
	IForest float64 `toml:"iforest"`
	OCSVM   float64 `toml:"ocsvm"`
	LOF     float64 `toml:"lof"`
}

// Decay holds the spec's trust_decay parameters. §0.3 of SPEC_FULL.md
// resolves the Open Question by wiring these into the trust engine
// rather than dropping them.
type Decay struct {
	IdleDecayRate     float64 `toml:"idle"`
	AnomalyDecayRate  float64 `toml:"anomaly"`
	RecoveryRate      float64 `toml:"recovery"`
	MaxDecayPerUpdate float64 `toml:"max_per_update"`
}

// EngineConfig is the structured, file-loaded half of configuration —
// spec.md §9's "structured config file with the recognized options."
type EngineConfig struct {
	TrustWeights       TrustWeights   `toml:"trust_weights"`
	RiskThresholds     RiskThresholds `toml:"risk_thresholds"`
	ModelWeights       ModelWeights   `toml:"model_weights"`
	SessionTimeoutH    float64        `toml:"session_timeout_h"`
	Decay              Decay          `toml:"decay"`
}

// Config is the full process configuration: secrets from the
// environment plus the immutable engine tuning loaded from TOML.
type Config struct {
	DatabaseURL  string
	JWTSecret    string
	JWTExpiry    time.Duration
	ServerAddr   string
	ModelDir     string
	Engine       EngineConfig
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		TrustWeights:    TrustWeights{Behavioral: 0.4, Temporal: 0.2, Context: 0.15, Historical: 0.15, AnomalyFreq: 0.1},
		RiskThresholds:  RiskThresholds{Low: 0.3, Medium: 0.6, High: 0.8},
		ModelWeights:    ModelWeights{IForest: 0.4, OCSVM: 0.3, LOF: 0.3},
		SessionTimeoutH: 24,
		Decay:           Decay{IdleDecayRate: 0.05, AnomalyDecayRate: 0.15, RecoveryRate: 0.02, MaxDecayPerUpdate: 0.2},
	}
}

// Load reads .env (if present), then a TOML engine-config file named
// by CONFIG_FILE (default "config.toml", missing file silently keeps
// the built-in defaults), and finally environment secrets.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	engine := defaultEngineConfig()
	path := getenv("CONFIG_FILE", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &engine); err != nil {
			return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
		}
	}

	expiryMin, err := strconv.Atoi(getenv("JWT_EXPIRY_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_MINUTES: %w", err)
	}

	cfg := &Config{
		DatabaseURL: getenv("DATABASE_URL", "postgres://localhost:5432/trustengine?sslmode=disable"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiry:   time.Duration(expiryMin) * time.Minute,
		ServerAddr:  getenv("SERVER_ADDR", "0.0.0.0:8000"),
		ModelDir:    getenv("MODEL_DIR", "./models"),
		Engine:      engine,
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
