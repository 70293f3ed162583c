package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the investigation engine
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Research  ResearchConfig  `mapstructure:"research"`
	Judge     JudgeConfig     `mapstructure:"judge"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains LLM provider configuration and per-role model routing
type LLMConfig struct {
	APIKey      string           `mapstructure:"api_key"`
	BaseURL     string           `mapstructure:"base_url"`
	Timeout     time.Duration    `mapstructure:"timeout"`
	MaxRetries  int              `mapstructure:"max_retries"`
	Routing     LLMRoutingConfig `mapstructure:"routing"`
	Temperature float64          `mapstructure:"temperature"`
}

// LLMRoutingConfig defines which model to use for different roles
type LLMRoutingConfig struct {
	Planning   string `mapstructure:"planning"`   // planning oracle
	Brief      string `mapstructure:"brief"`      // brief building
	Extraction string `mapstructure:"extraction"` // candidate top-up extraction
	Repair     string `mapstructure:"repair"`     // JSON repair passes
}

// SearchConfig holds search provider credentials
type SearchConfig struct {
	Provider     string `mapstructure:"provider"` // serper or brave
	SerperAPIKey string `mapstructure:"serper_api_key"`
	BraveAPIKey  string `mapstructure:"brave_api_key"`
}

// FetchConfig controls the headless page fetcher
type FetchConfig struct {
	TimeoutMS time.Duration `mapstructure:"timeout_ms"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// ResearchConfig bounds the turn loop
type ResearchConfig struct {
	MaxTurns          int           `mapstructure:"max_turns"`
	MaxBudget         int           `mapstructure:"max_budget"`
	MaxActionsPerTurn int           `mapstructure:"max_actions_per_turn"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
	ImageReserve      int           `mapstructure:"image_reserve"`
}

// JudgeConfig tunes the arbitration engine
type JudgeConfig struct {
	CommitteeModels     []string      `mapstructure:"committee_models"`
	SelfConsistencyRuns int           `mapstructure:"self_consistency_runs"`
	EnableSwap          bool          `mapstructure:"enable_swap"`
	EnableRouter        bool          `mapstructure:"enable_router"`
	RouterTopK          int           `mapstructure:"router_top_k"`
	CostCoefficient     float64       `mapstructure:"cost_coefficient"`
	PauseThreshold      float64       `mapstructure:"pause_threshold"`
	BiasAlarmThreshold  float64       `mapstructure:"bias_alarm_threshold"`
	EnableCalibration   bool          `mapstructure:"enable_calibration"`
	EvaluatorTimeout    time.Duration `mapstructure:"evaluator_timeout"`
	MaxTokens           int           `mapstructure:"max_tokens"`
}

// StorageConfig configures the run snapshot store
type StorageConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	SnapshotTTL   time.Duration `mapstructure:"snapshot_ttl"`
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

func (r ResearchConfig) Validate() error {
	if r.MaxTurns <= 0 {
		return fmt.Errorf("research.max_turns must be > 0")
	}
	if r.MaxBudget <= 0 {
		return fmt.Errorf("research.max_budget must be > 0")
	}
	if r.MaxActionsPerTurn <= 0 {
		return fmt.Errorf("research.max_actions_per_turn must be > 0")
	}
	return nil
}

func (j JudgeConfig) Validate() error {
	if j.PauseThreshold < 0 || j.PauseThreshold > 1 {
		return fmt.Errorf("judge.pause_threshold must be within [0,1]")
	}
	if j.BiasAlarmThreshold < 0 || j.BiasAlarmThreshold > 1 {
		return fmt.Errorf("judge.bias_alarm_threshold must be within [0,1]")
	}
	if j.SelfConsistencyRuns < 1 {
		return fmt.Errorf("judge.self_consistency_runs must be >= 1")
	}
	return nil
}

// LoadConfig reads configuration from file and environment, applying defaults.
// Validation failures are fatal: they indicate a misconfigured deployment.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "60s")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.timeout", "45s")
	viper.SetDefault("llm.max_retries", 1)
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.routing.planning", "qwen/qwen3-32b")
	viper.SetDefault("llm.routing.brief", "qwen/qwen3-32b")
	viper.SetDefault("llm.routing.extraction", "mistralai/mistral-small-3.2-24b-instruct:free")
	viper.SetDefault("llm.routing.repair", "mistralai/mistral-7b-instruct:free")
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("fetch.timeout_ms", "15000ms")
	viper.SetDefault("fetch.max_chars", 20000)
	viper.SetDefault("research.max_turns", 20)
	viper.SetDefault("research.max_budget", 15)
	viper.SetDefault("research.max_actions_per_turn", 6)
	viper.SetDefault("research.action_timeout", "30s")
	viper.SetDefault("research.image_reserve", 2)
	viper.SetDefault("judge.committee_models", []string{
		"qwen/qwen3-32b",
		"mistralai/mistral-small-3.2-24b-instruct:free",
		"qwen/qwen3-coder:free",
	})
	viper.SetDefault("judge.self_consistency_runs", 2)
	viper.SetDefault("judge.enable_swap", true)
	viper.SetDefault("judge.enable_router", false)
	viper.SetDefault("judge.router_top_k", 2)
	viper.SetDefault("judge.cost_coefficient", 0.05)
	viper.SetDefault("judge.pause_threshold", 0.60)
	viper.SetDefault("judge.bias_alarm_threshold", 0.20)
	viper.SetDefault("judge.enable_calibration", false)
	viper.SetDefault("judge.evaluator_timeout", "30s")
	viper.SetDefault("judge.max_tokens", 2048)
	viper.SetDefault("storage.redis_addr", "localhost:6379")
	viper.SetDefault("storage.snapshot_ttl", "720h")
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.metrics_port", 9109)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SLEUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; env + defaults are enough to boot
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Research.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Judge.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
