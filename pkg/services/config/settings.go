package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings is the process configuration, environment-first with defaults.
// A .env file loaded in main feeds the same variables during development.
type Settings struct {
	ServerHost string `mapstructure:"server_host"`
	ServerPort string `mapstructure:"server_port"`
	APIKey     string `mapstructure:"api_key"`

	DBPath    string `mapstructure:"db_path"`
	UploadDir string `mapstructure:"upload_dir"`
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Prefix  string `mapstructure:"s3_prefix"`

	AliasTablePath   string  `mapstructure:"kpi_aliases_path"`
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold"`

	OpenAIAPIKey   string        `mapstructure:"openai_api_key"`
	OpenAIModel    string        `mapstructure:"openai_model"`
	OpenAIEndpoint string        `mapstructure:"openai_endpoint"`
	OpenAITimeout  time.Duration `mapstructure:"openai_timeout"`
}

func Load() (*Settings, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("db_path", "kpi-atlas.db")
	v.SetDefault("upload_dir", "data/uploads")
	v.SetDefault("anomaly_threshold", 0.20)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_timeout", 15*time.Second)

	for _, key := range []string{
		"server_host", "server_port", "api_key",
		"db_path", "upload_dir", "s3_bucket", "s3_prefix",
		"kpi_aliases_path", "anomaly_threshold",
		"openai_api_key", "openai_model", "openai_endpoint", "openai_timeout",
	} {
		_ = v.BindEnv(key)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	return &s, nil
}
