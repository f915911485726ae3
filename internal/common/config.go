package common

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Decode     DecodeConfig     `mapstructure:"decode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// DatabaseConfig holds the audit-log store settings. An empty Driver disables it.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // postgres | sqlite | ""
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr"`
}

type OCRConfig struct {
	Engine           string `mapstructure:"engine"` // tesseract | mistral
	Tesseract        string `mapstructure:"tesseract"`
	Lang             string `mapstructure:"lang"`
	PSM              int    `mapstructure:"psm"`
	OEM              int    `mapstructure:"oem"`
	TessdataDir      string `mapstructure:"tessdata_dir"`
	HeicConverter    string `mapstructure:"heic_converter"`
	ArtifactCacheDir string `mapstructure:"artifact_cache_dir"`

	MistralAPIKey  string `mapstructure:"mistral_api_key"`
	MistralBaseURL string `mapstructure:"mistral_base_url"`
	MistralModel   string `mapstructure:"mistral_model"`
}

type ExtractionConfig struct {
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
	OCRTimeout    time.Duration `mapstructure:"ocr_timeout"`
	PrefixBonus   bool          `mapstructure:"prefix_bonus"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
}

type DecodeConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EngineTesseract = "tesseract"
	EngineMistral   = "mistral"
)

// legacyEnv keeps the unprefixed variable names older deployments already export.
var legacyEnv = map[string]string{
	"database.dsn":        "DB_URL",
	"server.grpc_addr":    "GRPC_ADDR",
	"ocr.tessdata_dir":    "TESSDATA_PREFIX",
	"ocr.heic_converter":  "HEIC_CONVERTER",
	"ocr.mistral_api_key": "MISTRAL_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("server.grpc_addr", ":8080")

	v.SetDefault("ocr.engine", EngineTesseract)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.psm", 11)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.artifact_cache_dir", "./tmp")
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_base_url", "https://api.mistral.ai/v1")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")

	v.SetDefault("extraction.max_image_bytes", 10<<20)
	v.SetDefault("extraction.ocr_timeout", 30*time.Second)
	v.SetDefault("extraction.prefix_bonus", true)
	v.SetDefault("extraction.workers", 4)
	v.SetDefault("extraction.queue_size", 256)

	v.SetDefault("decode.base_url", "https://vpic.nhtsa.dot.gov/api")
	v.SetDefault("decode.timeout", 10*time.Second)
	v.SetDefault("decode.attempts", 3)
	v.SetDefault("decode.retry_delay", 500*time.Millisecond)
}

// LoadConfig reads defaults, an optional YAML file and VINSCAN_* environment variables.
// cfgFile may be empty, in which case ./vinscan.yaml and $HOME/.vinscan/vinscan.yaml are tried.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VINSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "VINSCAN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("vinscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vinscan")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	val := NewValidator().
		Field("log.format", c.Log.Format, OneOf("text", "json")).
		Field("database.driver", c.Database.Driver, OneOf("", DriverPostgres, DriverSQLite)).
		Field("server.grpc_addr", c.Server.GRPCAddr, Required).
		Field("ocr.engine", c.OCR.Engine, OneOf(EngineTesseract, EngineMistral)).
		Field("extraction.max_image_bytes", c.Extraction.MaxImageBytes, Positive).
		Field("extraction.ocr_timeout", c.Extraction.OCRTimeout, Positive).
		Field("extraction.workers", c.Extraction.Workers, Positive).
		Field("decode.base_url", c.Decode.BaseURL, Required).
		Field("decode.attempts", c.Decode.Attempts, Positive)
	if c.Database.Driver == DriverPostgres {
		val.Field("database.dsn", c.Database.DSN, Required)
	}
	if c.OCR.Engine == EngineMistral {
		val.Field("ocr.mistral_api_key", c.OCR.MistralAPIKey, Required)
	}
	if val.HasErrors() {
		return NewAppError("CONFIG_ERROR", val.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// SlogLevel maps Log.Level onto slog; unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
