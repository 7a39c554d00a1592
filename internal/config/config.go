package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Weather  WeatherConfig  `yaml:"weather" mapstructure:"weather"`
	Conflict ConflictConfig `yaml:"conflict" mapstructure:"conflict"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Ranking  RankingConfig  `yaml:"ranking" mapstructure:"ranking"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig holds the on-disk artifact paths.
type DataConfig struct {
	RawPath       string `yaml:"raw_path" mapstructure:"raw_path"`
	WarehousePath string `yaml:"warehouse_path" mapstructure:"warehouse_path"`
	ProcessedPath string `yaml:"processed_path" mapstructure:"processed_path"`
	ModelPath     string `yaml:"model_path" mapstructure:"model_path"`
}

// WeatherConfig holds the current-conditions provider settings.
type WeatherConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// ConflictConfig holds the conflict-event provider settings.
type ConflictConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// FeaturesConfig configures feature construction.
type FeaturesConfig struct {
	// Noise enables the small random perturbation of the operational
	// metrics before clamping. Disable when the input data already has
	// natural variance.
	Noise bool `yaml:"noise" mapstructure:"noise"`
	// Seed fixes the random source for label synthesis and provider
	// fallbacks. Zero seeds from the clock; pipeline runs are then
	// intentionally non-deterministic, matching production behavior.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// ModelConfig holds the fixed classifier hyperparameters.
type ModelConfig struct {
	Rounds       int     `yaml:"rounds" mapstructure:"rounds"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
}

// RankingConfig configures supplier ranking.
type RankingConfig struct {
	RiskWeight       float64 `yaml:"risk_weight" mapstructure:"risk_weight"`
	DistWeight       float64 `yaml:"dist_weight" mapstructure:"dist_weight"`
	WarehouseCountry string  `yaml:"warehouse_country" mapstructure:"warehouse_country"`
}

// ServerConfig configures the HTTP query surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "risk-cli.db")
	v.SetDefault("data.raw_path", "data/updated_supplier_dataset.csv")
	v.SetDefault("data.warehouse_path", "data/warehouses.csv")
	v.SetDefault("data.processed_path", "processed/supplier_dataset_with_risk.csv")
	v.SetDefault("data.model_path", "models/supplier_failure_gbt.json")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.timeout_secs", 10)
	v.SetDefault("weather.rps", 5)
	v.SetDefault("conflict.base_url", "https://api.acleddata.com/acled/read")
	v.SetDefault("conflict.timeout_secs", 10)
	v.SetDefault("conflict.rps", 2)
	v.SetDefault("features.noise", true)
	v.SetDefault("features.seed", 0)
	v.SetDefault("model.rounds", 50)
	v.SetDefault("model.learning_rate", 0.3)
	v.SetDefault("ranking.risk_weight", 0.7)
	v.SetDefault("ranking.dist_weight", 0.3)
	v.SetDefault("ranking.warehouse_country", "India")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Default returns the configuration produced by defaults alone, without
// reading any file or environment. Used by `config init`.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	if c.Ranking.RiskWeight < 0 || c.Ranking.DistWeight < 0 {
		errs = append(errs, "ranking weights must be >= 0")
	}
	if c.Ranking.RiskWeight+c.Ranking.DistWeight <= 0 {
		errs = append(errs, "ranking weight sum must be > 0")
	}
	if c.Model.Rounds < 0 {
		errs = append(errs, "model.rounds must be >= 0")
	}
	if c.Model.LearningRate <= 0 {
		errs = append(errs, "model.learning_rate must be > 0")
	}
	if c.Data.RawPath == "" || c.Data.ProcessedPath == "" || c.Data.ModelPath == "" {
		errs = append(errs, "data paths must not be empty")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
