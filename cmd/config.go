package cmd

import (
	"fmt"

	"github.com/spf13/viper"
)

// FlashConfig holds tool configuration read from fastboot-config.yaml
// or FASTBOOT_* environment variables.
type FlashConfig struct {
	Serial        string `mapstructure:"serial"`
	Product       string `mapstructure:"product"`
	SettleSeconds int    `mapstructure:"settle_seconds"`
	ShowProgress  bool   `mapstructure:"show_progress"`
}

// LoadFlashConfig loads configuration using Viper.
func LoadFlashConfig() (*FlashConfig, error) {
	viper.SetConfigName("fastboot-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.go-fastboot")
	viper.AddConfigPath("/etc/go-fastboot")

	// Set defaults
	viper.SetDefault("serial", "")
	viper.SetDefault("product", "")
	viper.SetDefault("settle_seconds", 5)
	viper.SetDefault("show_progress", true)

	// Allow environment variables
	viper.SetEnvPrefix("FASTBOOT")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config FlashConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
