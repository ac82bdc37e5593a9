package ormlite

import (
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/golobby/ormlite/dialect"
)

type ConnectionConfig struct {
	Name             string
	Driver           string
	ConnectionString string
	// DB and Dialect take precedence over Driver and ConnectionString when both are set.
	DB      *sql.DB
	Dialect dialect.Provider

	Parameterized        bool
	DisableGuessFallback bool
	CommandTimeout       time.Duration
	// Naming is applied to the dialect before it is frozen: snake_case or plural_snake_case.
	Naming   string
	LogLevel LogLevel
	Logger   Logger
}

// LoadConfig reads a connection config from the file at path, or from ormlite.yaml in the working
// directory when path is empty. ORMLITE_* environment variables override the file, and .env and
// .env.local are loaded into the environment first.
func LoadConfig(path string) (*ConnectionConfig, error) {
	for _, f := range []string{".env", ".env.local"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Overload(f); err != nil {
				return nil, err
			}
		}
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ormlite")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("ORMLITE")
	v.AutomaticEnv()

	v.SetDefault("name", "default")
	v.SetDefault("driver", "sqlite3")
	v.SetDefault("dsn", ":memory:")
	v.SetDefault("parameterized", true)
	v.SetDefault("disable_guess_fallback", false)
	v.SetDefault("command_timeout", "0s")
	v.SetDefault("log_level", "none")
	v.SetDefault("naming", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &ConnectionConfig{
		Name:                 v.GetString("name"),
		Driver:               v.GetString("driver"),
		ConnectionString:     v.GetString("dsn"),
		Parameterized:        v.GetBool("parameterized"),
		DisableGuessFallback: v.GetBool("disable_guess_fallback"),
		CommandTimeout:       v.GetDuration("command_timeout"),
		Naming:               v.GetString("naming"),
		LogLevel:             LogLevelByName(v.GetString("log_level")),
	}, nil
}
