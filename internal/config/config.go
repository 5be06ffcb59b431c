package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "pinstate.cfg.json"

// LayerConfig holds the z-index layers markers move between.
type LayerConfig struct {
	Idle       int `json:"idle" mapstructure:"idle"`
	Hover      int `json:"hover" mapstructure:"hover"`
	Faded      int `json:"faded" mapstructure:"faded"`
	Spiderfied int `json:"spiderfied" mapstructure:"spiderfied"`
}

// SpiderConfig holds the spiderfier tunables.
type SpiderConfig struct {
	NearbyDistance         float64 `json:"nearbyDistance" mapstructure:"nearbyDistance"`
	KeepSpiderfied         bool    `json:"keepSpiderfied" mapstructure:"keepSpiderfied"`
	Zoom                   float64 `json:"zoom" mapstructure:"zoom"`
	CircleSpiralSwitchover int     `json:"circleSpiralSwitchover" mapstructure:"circleSpiralSwitchover"`
	LegWeight              float64 `json:"legWeight" mapstructure:"legWeight"`
}

// CoordinatorConfig holds the hover proxy and popover settings.
type CoordinatorConfig struct {
	Placement          string `json:"placement" mapstructure:"placement"`
	ProxyClass         string `json:"proxyClass" mapstructure:"proxyClass"`
	ProxyIndexAttr     string `json:"proxyIndexAttr" mapstructure:"proxyIndexAttr"`
	ProxyRespectsGroup bool   `json:"proxyRespectsGroup" mapstructure:"proxyRespectsGroup"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite journal settings.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"` // empty keeps the journal in memory only
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres journal settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB journal settings.
type InfluxConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`

	// BackupPath receives gzipped line protocol while the server is unreachable.
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// BadgerConfig holds embedded Badger journal settings.
type BadgerConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	InMemory bool   `json:"inMemory" mapstructure:"inMemory"`
}

// StorageConfig selects and configures the transition journal backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Influx   InfluxConfig   `json:"influx" mapstructure:"influx"`
	Badger   BadgerConfig   `json:"badger" mapstructure:"badger"`
}

// APIConfig holds the collector that exported sessions are uploaded to.
type APIConfig struct {
	Upload    bool
	ServerURL string
	APIKey    string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level          string
	Dir            string
	GraylogEnabled bool
	GraylogAddress string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults are set
// even when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./pinstatelogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("zindex.idle", 100)
	viper.SetDefault("zindex.hover", 10000)
	viper.SetDefault("zindex.faded", 1000)
	viper.SetDefault("zindex.spiderfied", 20000)

	viper.SetDefault("spider.nearbyDistance", 10.0)
	viper.SetDefault("spider.keepSpiderfied", true)
	viper.SetDefault("spider.zoom", 15.0)
	viper.SetDefault("spider.circleSpiralSwitchover", 9)
	viper.SetDefault("spider.legWeight", 3.0)

	viper.SetDefault("coordinator.placement", "top")
	viper.SetDefault("coordinator.proxyClass", "PinResult")
	viper.SetDefault("coordinator.proxyIndexAttr", "data-pinindex")
	viper.SetDefault("coordinator.proxyRespectsGroup", true)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./transitions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./pinstate.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "pinstate")
	viper.SetDefault("storage.influx.host", "localhost")
	viper.SetDefault("storage.influx.port", "8086")
	viper.SetDefault("storage.influx.protocol", "http")
	viper.SetDefault("storage.influx.token", "supersecrettoken")
	viper.SetDefault("storage.influx.org", "pinstate")
	viper.SetDefault("storage.influx.bucket", "transitions")
	viper.SetDefault("storage.influx.backupPath", "./transitions.influx.gz")

	viper.SetDefault("storage.badger.dir", "./pinstate-badger")
	viper.SetDefault("storage.badger.inMemory", false)

	viper.SetDefault("api.upload", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "pinstate")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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

// GetLayerConfig returns the z-index layers.
func GetLayerConfig() LayerConfig {
	return LayerConfig{
		Idle:       viper.GetInt("zindex.idle"),
		Hover:      viper.GetInt("zindex.hover"),
		Faded:      viper.GetInt("zindex.faded"),
		Spiderfied: viper.GetInt("zindex.spiderfied"),
	}
}

// GetSpiderConfig returns the spiderfier settings.
func GetSpiderConfig() SpiderConfig {
	return SpiderConfig{
		NearbyDistance:         viper.GetFloat64("spider.nearbyDistance"),
		KeepSpiderfied:         viper.GetBool("spider.keepSpiderfied"),
		Zoom:                   viper.GetFloat64("spider.zoom"),
		CircleSpiralSwitchover: viper.GetInt("spider.circleSpiralSwitchover"),
		LegWeight:              viper.GetFloat64("spider.legWeight"),
	}
}

// GetCoordinatorConfig returns the hover proxy and popover settings.
func GetCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Placement:          viper.GetString("coordinator.placement"),
		ProxyClass:         viper.GetString("coordinator.proxyClass"),
		ProxyIndexAttr:     viper.GetString("coordinator.proxyIndexAttr"),
		ProxyRespectsGroup: viper.GetBool("coordinator.proxyRespectsGroup"),
	}
}

// GetStorageConfig returns the journal backend settings.
func GetStorageConfig() StorageConfig {
	var sc StorageConfig
	sc.Type = viper.GetString("storage.type")
	sc.Memory = MemoryConfig{
		OutputDir:      viper.GetString("storage.memory.outputDir"),
		CompressOutput: viper.GetBool("storage.memory.compressOutput"),
	}
	sc.SQLite = SQLiteConfig{
		Path:         viper.GetString("storage.sqlite.path"),
		DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
	}
	sc.Postgres = PostgresConfig{
		Host:     viper.GetString("storage.postgres.host"),
		Port:     viper.GetString("storage.postgres.port"),
		Username: viper.GetString("storage.postgres.username"),
		Password: viper.GetString("storage.postgres.password"),
		Database: viper.GetString("storage.postgres.database"),
	}
	sc.Influx = InfluxConfig{
		Host:     viper.GetString("storage.influx.host"),
		Port:     viper.GetString("storage.influx.port"),
		Protocol: viper.GetString("storage.influx.protocol"),
		Token:    viper.GetString("storage.influx.token"),
		Org:      viper.GetString("storage.influx.org"),
		Bucket:   viper.GetString("storage.influx.bucket"),

		BackupPath: viper.GetString("storage.influx.backupPath"),
	}
	sc.Badger = BadgerConfig{
		Dir:      viper.GetString("storage.badger.dir"),
		InMemory: viper.GetBool("storage.badger.inMemory"),
	}
	return sc
}

// GetAPIConfig returns the upload collector settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Upload:    viper.GetBool("api.upload"),
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetLoggingConfig returns the log output settings.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:          viper.GetString("logLevel"),
		Dir:            viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}
