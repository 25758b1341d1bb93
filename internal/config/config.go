package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the data directory.
const FileName = "config.yml"

// HologramConfig controls the countdown label above each instance.
type HologramConfig struct {
	Enabled  bool    `json:"enabled" mapstructure:"enabled"`
	Format   string  `json:"format" mapstructure:"format"`
	OffsetY  float64 `json:"offsetY" mapstructure:"offset-y"`
	Provider string  `json:"provider" mapstructure:"provider"`
	Stream   StreamConfig
}

// StreamConfig locates an external label renderer.
type StreamConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// EngineConfig holds countdown timing.
type EngineConfig struct {
	TickLength   time.Duration
	ZoneLifetime time.Duration
}

// MemoryConfig holds in-memory journal settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds sqlite journal settings
type SQLiteConfig struct {
	Path         string
	DumpInterval time.Duration
}

// WebsocketConfig locates a remote journal collector.
type WebsocketConfig struct {
	URL    string
	Secret string
}

// StorageConfig selects and configures the lifecycle journal.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	Websocket WebsocketConfig
}

// DBConfig locates the postgres journal database.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// OTelConfig configures OpenTelemetry log and metric export.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

type GraylogConfig struct {
	Enabled bool
	Address string
}

// APIConfig locates the server journal exports are uploaded to.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./itntlogs")

	viper.SetDefault("hologram.enabled", true)
	viper.SetDefault("hologram.format", "&#FF6347%name% &f- &e%time%s")
	viper.SetDefault("hologram.offset-y", 0.8)
	viper.SetDefault("hologram.provider", "entity")
	viper.SetDefault("hologram.stream.url", "")
	viper.SetDefault("hologram.stream.secret", "")

	viper.SetDefault("engine.tickLength", "50ms")
	viper.SetDefault("engine.zoneLifetime", "100ms")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./journal")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "itnt")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "itnt-metrics")
	viper.SetDefault("influx.bucket", "itnt")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "itnt")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads config.yml from configDir over the defaults. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Reload re-reads the file Load found.
func Reload() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetHologramConfig() HologramConfig {
	return HologramConfig{
		Enabled:  viper.GetBool("hologram.enabled"),
		Format:   viper.GetString("hologram.format"),
		OffsetY:  viper.GetFloat64("hologram.offset-y"),
		Provider: viper.GetString("hologram.provider"),
		Stream: StreamConfig{
			URL:    viper.GetString("hologram.stream.url"),
			Secret: viper.GetString("hologram.stream.secret"),
		},
	}
}

func GetEngineConfig() EngineConfig {
	return EngineConfig{
		TickLength:   viper.GetDuration("engine.tickLength"),
		ZoneLifetime: viper.GetDuration("engine.zoneLifetime"),
	}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetMessages returns the configured message overrides.
func GetMessages() map[string]string {
	return viper.GetStringMapString("messages")
}
