package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CommissionConfig carries the payout rules. Values are decimal
// strings so a rate like "0.10" never passes through binary floats.
type CommissionConfig struct {
	RegularRate  string `mapstructure:"regular_rate"`
	CashRate     string `mapstructure:"cash_rate"`
	DeliveryFlat string `mapstructure:"delivery_flat"`
	FuelShare    string `mapstructure:"fuel_share"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Commission CommissionConfig `mapstructure:"commission"`
}

// Load reads configuration from the given file path (e.g.
// "config.yaml"). If path is empty it looks for config.yaml in the
// working directory. Environment variables prefixed with SPS_
// override file values, e.g. SPS_SERVER_PORT=9000.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "proteg.db")
	v.SetDefault("commission.regular_rate", "0.10")
	v.SetDefault("commission.cash_rate", "0.05")
	v.SetDefault("commission.delivery_flat", "50")
	v.SetDefault("commission.fuel_share", "0.5")

	v.SetEnvPrefix("SPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// missing file is fine, defaults and env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
