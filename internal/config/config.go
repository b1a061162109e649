package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig       *AppConfig
	WebDriverConfig *WebDriverConfig
	SessionConfig   *SessionConfig
	MetricsConfig   *MetricsConfig
	TracingConfig   *TracingConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type WebDriverConfig struct {
	URL string `envconfig:"WEBDRIVER_URL" default:"http://localhost:4444"`
	// Timeout is in milliseconds and bounds the HTTP client only; zero disables it.
	Timeout int `envconfig:"WEBDRIVER_TIMEOUT" default:"0"`
}

type SessionConfig struct {
	SessionID   string `envconfig:"WEBDRIVER_SESSION_ID"`
	BrowserName string `envconfig:"BROWSER_NAME" default:"chrome"`
	Async       bool   `envconfig:"SESSION_ASYNC" default:"true"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

// TracingConfig selects where spans go. Exporter is "none" or "stdout".
type TracingConfig struct {
	Exporter    string  `envconfig:"TRACE_EXPORTER" default:"none"`
	SampleRatio float64 `envconfig:"TRACE_SAMPLE_RATIO" default:"1"`
}

func (c *WebDriverConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
