// Package config собирает настройки сервера: значения по умолчанию,
// файл (yaml/json), переменные окружения REFENUM_* и флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "REFENUM"

// Драйверы хранилища.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port        string `mapstructure:"port"`
	DSLDir      string `mapstructure:"dsl_dir"`
	EnumsDir    string `mapstructure:"enums_dir"`
	DBDriver    string `mapstructure:"db_driver"` // memory | postgres | sqlite
	DBURL       string `mapstructure:"db_url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	Seed        bool   `mapstructure:"seed"` // досеять справочники из каталога
	LogLevel    string `mapstructure:"log_level"`
	Trace       bool   `mapstructure:"trace"` // спаны SQL в stdout
}

func def() Config {
	return Config{
		Port:     "8080",
		DSLDir:   "dsl",
		EnumsDir: "reference/enums",
		DBDriver: DriverMemory,
		Seed:     true,
		LogLevel: "info",
	}
}

// flag -> ключ конфигурации
var flagKeys = map[string]string{
	"port":         "port",
	"dsl":          "dsl_dir",
	"enums":        "enums_dir",
	"db-driver":    "db_driver",
	"db":           "db_url",
	"auto-migrate": "auto_migrate",
	"seed":         "seed",
	"log-level":    "log_level",
	"trace":        "trace",
}

// BindFlags регистрирует постоянные флаги команды и связывает их с v.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	d := def()
	fs := cmd.PersistentFlags()
	fs.StringP("config", "c", "", "Path to config file (yaml/json)")
	fs.String("port", d.Port, "HTTP port")
	fs.String("dsl", d.DSLDir, "Path to DSL directory")
	fs.String("enums", d.EnumsDir, "Path to enums directory")
	fs.String("db-driver", d.DBDriver, "Storage driver: memory|postgres|sqlite")
	fs.String("db", d.DBURL, "Database URL (postgres DSN or sqlite file)")
	fs.Bool("auto-migrate", d.AutoMigrate, "Create missing tables on start")
	fs.Bool("seed", d.Seed, "Insert missing enum members from the catalog")
	fs.String("log-level", d.LogLevel, "debug|info|warn|error")
	fs.Bool("trace", d.Trace, "Print SQL spans to stdout")

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load читает конфигурацию. Порядок: умолчания → файл → ENV → флаги.
// Пустой path: ищем refenum.yaml в текущем каталоге, его отсутствие не ошибка.
func Load(v *viper.Viper, path string) (Config, error) {
	d := def()
	v.SetDefault("port", d.Port)
	v.SetDefault("dsl_dir", d.DSLDir)
	v.SetDefault("enums_dir", d.EnumsDir)
	v.SetDefault("db_driver", d.DBDriver)
	v.SetDefault("db_url", d.DBURL)
	v.SetDefault("auto_migrate", d.AutoMigrate)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("trace", d.Trace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("refenum")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.DBURL = strings.TrimSpace(cfg.DBURL)
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("config: port %q is not a valid TCP port", c.Port)
	}
	switch c.DBDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.DBURL == "" {
			return fmt.Errorf("config: db_url is required for driver %q", c.DBDriver)
		}
	default:
		return fmt.Errorf("config: unknown db_driver %q (allowed: memory|postgres|sqlite)", c.DBDriver)
	}
	if strings.TrimSpace(c.DSLDir) == "" {
		return errors.New("config: dsl_dir is empty")
	}
	return nil
}

// Addr: адрес для net/http.
func (c Config) Addr() string { return ":" + c.Port }
