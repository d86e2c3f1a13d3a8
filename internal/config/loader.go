package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/evservice/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. EVS_DATABASE_HOST.
const EnvPrefix = "EVS"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Import   ImportConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type ImportConfig struct {
	MaxUploadMB int
	MaxRows     int
}

// MaxUploadBytes converts the upload limit to bytes.
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads config.yaml from configPath (optional), then applies a .env file
// (optional) and EVS_ environment overrides on top of the defaults.
func Load(configPath string) (Config, bool, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // allow environment overrides

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, false, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults + env
		fileLoaded = false
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     splitList(v.GetStringSlice("server.cors_origins")),
		},
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
			MinConns: v.GetInt32("database.min_conns"),
		},
		Import: ImportConfig{
			MaxUploadMB: v.GetInt("import.max_upload_mb"),
			MaxRows:     v.GetInt("import.max_rows"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fileLoaded, err
	}
	return cfg, fileLoaded, nil
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)
	v.SetDefault("database.min_conns", dbDefaults.MinConns)

	v.SetDefault("import.max_upload_mb", 32)
	v.SetDefault("import.max_rows", 5000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c Config) validate() error {
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Database.Port)
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import.max_rows must be positive, got %d", c.Import.MaxRows)
	}
	if c.Import.MaxUploadMB <= 0 {
		return fmt.Errorf("import.max_upload_mb must be positive, got %d", c.Import.MaxUploadMB)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
