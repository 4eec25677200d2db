// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	// DatabaseURL is optional; without it the service executes workflows but
	// neither stores apps nor records executions.
	DatabaseURL string
	Env         string
	AdminToken  string
	AutoMigrate bool

	StepTimeout        time.Duration
	CapabilityTimeouts map[string]time.Duration

	// ExecuteRatePerMinute limits execute requests per client; zero disables.
	ExecuteRatePerMinute int

	Tracing TracingConfig
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	Timeout    time.Duration
	Sampler    string
	SampleRate float64
}

func Load() (Config, error) {
	autoMigrate, err := getenvBool("AUTO_MIGRATE", true)
	if err != nil {
		return Config{}, err
	}

	// Zero leaves capabilities unbounded unless CAPABILITY_TIMEOUTS names them.
	stepTimeout, err := getenvDuration("STEP_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}

	capabilityTimeouts, err := parseCapabilityTimeouts(os.Getenv("CAPABILITY_TIMEOUTS"))
	if err != nil {
		return Config{}, err
	}

	rate, err := getenvInt("EXECUTE_RATE_PER_MIN", 120)
	if err != nil {
		return Config{}, err
	}

	sampleRate, err := getenvFloat("TRACING_SAMPLE_RATE", 1.0)
	if err != nil {
		return Config{}, err
	}
	if sampleRate < 0 || sampleRate > 1 {
		return Config{}, fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1, got %v", sampleRate)
	}

	tracingTimeout, err := getenvDuration("TRACING_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	tracingEnabled, err := getenvBool("TRACING_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Env:                  getenv("ENV", "dev"),
		AdminToken:           strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		AutoMigrate:          autoMigrate,
		StepTimeout:          stepTimeout,
		CapabilityTimeouts:   capabilityTimeouts,
		ExecuteRatePerMinute: rate,
		Tracing: TracingConfig{
			Enabled:    tracingEnabled,
			Endpoint:   getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Timeout:    tracingTimeout,
			Sampler:    getenv("TRACING_SAMPLER", "parentbased_traceidratio"),
			SampleRate: sampleRate,
		},
	}, nil
}

func getenv(key, defaultValue string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	return defaultValue
}

func getenvBool(key string, defaultValue bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func getenvInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func getenvFloat(key string, defaultValue float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func getenvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}

// parseCapabilityTimeouts reads "type=duration" pairs separated by commas,
// e.g. "api-call=10s,image-generation=1m".
func parseCapabilityTimeouts(raw string) (map[string]time.Duration, error) {
	out := map[string]time.Duration{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("CAPABILITY_TIMEOUTS entry %q must be type=duration", pair)
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("CAPABILITY_TIMEOUTS entry %q has invalid duration", pair)
		}
		out[name] = d
	}
	return out, nil
}
