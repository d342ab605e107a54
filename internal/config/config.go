package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "PRICEFILL"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Enrich    EnrichConfig    `yaml:"enrich" envconfig:"ENRICH"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pricefill.log" validate:"required_unless=Output console"`
}

// EnrichConfig controls how collection rows are matched and priced
type EnrichConfig struct {
	Window       string `yaml:"window" envconfig:"WINDOW" default:"avg7" validate:"oneof=avg low trend avg1 avg7 avg30"`
	UseScryfall  bool   `yaml:"use_scryfall" envconfig:"USE_SCRYFALL" default:"true"`
	ScryfallBulk string `yaml:"scryfall_bulk" envconfig:"SCRYFALL_BULK"`
	AddProductID bool   `yaml:"add_product_id" envconfig:"ADD_PRODUCT_ID" default:"false"`
}

// ExportConfig contains output configuration
type ExportConfig struct {
	OutputSuffix string `yaml:"output_suffix" envconfig:"OUTPUT_SUFFIX" default:".with_prices.csv" validate:"required"`
	BOMPrefix    bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX" default:"false"`
	XLSXPath     string `yaml:"xlsx_path" envconfig:"XLSX_PATH"`
	SQLitePath   string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	SQLiteTable  string `yaml:"sqlite_table" envconfig:"SQLITE_TABLE" default:"collection" validate:"required"`
}

// TelemetryConfig contains tracing configuration
type TelemetryConfig struct {
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE" default:"logs/trace.json"`
	Environment   string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// Load loads configuration from a .env file, environment variables and an optional YAML file.
// An empty path searches the default locations; env values take precedence over the file.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		fileConfig, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileConfig is the YAML layout of Config. Booleans are pointers so an explicit false
// in the file can be told apart from an absent key.
type fileConfig struct {
	Logging struct {
		Level    string `yaml:"level"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"logging"`
	Enrich struct {
		Window       string `yaml:"window"`
		UseScryfall  *bool  `yaml:"use_scryfall"`
		ScryfallBulk string `yaml:"scryfall_bulk"`
		AddProductID *bool  `yaml:"add_product_id"`
	} `yaml:"enrich"`
	Export struct {
		OutputSuffix string `yaml:"output_suffix"`
		BOMPrefix    *bool  `yaml:"bom_prefix"`
		XLSXPath     string `yaml:"xlsx_path"`
		SQLitePath   string `yaml:"sqlite_path"`
		SQLiteTable  string `yaml:"sqlite_table"`
	} `yaml:"export"`
	Telemetry struct {
		EnableTracing *bool  `yaml:"enable_tracing"`
		TraceFile     string `yaml:"trace_file"`
		Environment   string `yaml:"environment"`
	} `yaml:"telemetry"`
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*fileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value explicitly set in the
// environment wins; otherwise a value present in the file replaces the envconfig default.
func mergeConfigs(fileConfig fileConfig, envConfig Config) Config {
	str := func(env, file, key string) string {
		if _, set := os.LookupEnv(EnvPrefix + "_" + key); set || file == "" {
			return env
		}
		return file
	}
	flag := func(env bool, file *bool, key string) bool {
		if _, set := os.LookupEnv(EnvPrefix + "_" + key); set || file == nil {
			return env
		}
		return *file
	}

	envConfig.Logging.Level = str(envConfig.Logging.Level, fileConfig.Logging.Level, "LOGGING_LEVEL")
	envConfig.Logging.Output = str(envConfig.Logging.Output, fileConfig.Logging.Output, "LOGGING_OUTPUT")
	envConfig.Logging.FilePath = str(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "LOGGING_FILE_PATH")

	envConfig.Enrich.Window = str(envConfig.Enrich.Window, fileConfig.Enrich.Window, "ENRICH_WINDOW")
	envConfig.Enrich.UseScryfall = flag(envConfig.Enrich.UseScryfall, fileConfig.Enrich.UseScryfall, "ENRICH_USE_SCRYFALL")
	envConfig.Enrich.ScryfallBulk = str(envConfig.Enrich.ScryfallBulk, fileConfig.Enrich.ScryfallBulk, "ENRICH_SCRYFALL_BULK")
	envConfig.Enrich.AddProductID = flag(envConfig.Enrich.AddProductID, fileConfig.Enrich.AddProductID, "ENRICH_ADD_PRODUCT_ID")

	envConfig.Export.OutputSuffix = str(envConfig.Export.OutputSuffix, fileConfig.Export.OutputSuffix, "EXPORT_OUTPUT_SUFFIX")
	envConfig.Export.XLSXPath = str(envConfig.Export.XLSXPath, fileConfig.Export.XLSXPath, "EXPORT_XLSX_PATH")
	envConfig.Export.SQLitePath = str(envConfig.Export.SQLitePath, fileConfig.Export.SQLitePath, "EXPORT_SQLITE_PATH")
	envConfig.Export.SQLiteTable = str(envConfig.Export.SQLiteTable, fileConfig.Export.SQLiteTable, "EXPORT_SQLITE_TABLE")
	envConfig.Export.BOMPrefix = flag(envConfig.Export.BOMPrefix, fileConfig.Export.BOMPrefix, "EXPORT_BOM_PREFIX")

	envConfig.Telemetry.EnableTracing = flag(envConfig.Telemetry.EnableTracing, fileConfig.Telemetry.EnableTracing, "TELEMETRY_ENABLE_TRACING")
	envConfig.Telemetry.TraceFile = str(envConfig.Telemetry.TraceFile, fileConfig.Telemetry.TraceFile, "TELEMETRY_TRACE_FILE")
	envConfig.Telemetry.Environment = str(envConfig.Telemetry.Environment, fileConfig.Telemetry.Environment, "TELEMETRY_ENVIRONMENT")

	return envConfig
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	// Always JSON, matching the logger implementation
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return validator.New().Struct(c)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"pricefill.yaml",
		"configs/pricefill.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pricefill.log",
		},
		Enrich: EnrichConfig{
			Window:      DefaultPriceWindow,
			UseScryfall: true,
		},
		Export: ExportConfig{
			OutputSuffix: DefaultOutputSuffix,
			SQLiteTable:  DefaultSQLiteTable,
		},
		Telemetry: TelemetryConfig{
			TraceFile:   "logs/trace.json",
			Environment: "development",
		},
	}
}
