package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig          `mapstructure:"server"`
	Database    DatabaseConfig        `mapstructure:"database"`
	TokenSecret string                `mapstructure:"token_secret"`
	Views       map[string]ViewConfig `mapstructure:"views"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// ViewConfig is the declarative configuration of one CRUD view: the backing
// table, the ordered field specs in the column mini-language, and the
// visibility toggles. Toggles are strings accepting literal "true"/"false";
// per the historical behavior only "false" hides a section.
type ViewConfig struct {
	Table          string   `mapstructure:"table"`
	Pagination     int      `mapstructure:"pagination"`
	Fields         []string `mapstructure:"fields"`
	ShowForm       string   `mapstructure:"showform"`
	ShowTable      string   `mapstructure:"showtable"`
	ShowSearch     string   `mapstructure:"showsearch"`
	ShowPagination string   `mapstructure:"showpagination"`
	ShowCount      string   `mapstructure:"showrecordscount"`
	ShowEdit       string   `mapstructure:"showedit"`
	ShowDelete     string   `mapstructure:"showdelete"`
}

// ShowFlag interprets a visibility toggle value.
func ShowFlag(s string) bool {
	return strings.ToLower(strings.TrimSpace(s)) != "false"
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("database.path", "./data")
	viper.SetDefault("token_secret", "changeme-secret")

	viper.SetEnvPrefix("TABLECRUD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
