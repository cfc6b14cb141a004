package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
}

// NewConfig validates the server settings. An empty origin list allows
// any origin, which suits local development; deployments pass an
// explicit list.
func NewConfig(serverAddr string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
	}, nil
}

// FromEnv builds a config from RELAY_ADDR and RELAY_ALLOWED_ORIGINS
// (comma-separated), with fallbacks for anything unset.
func FromEnv() (*Config, error) {
	addr := getEnvOrDefault("RELAY_ADDR", "localhost:8000")

	var origins []string
	if raw := os.Getenv("RELAY_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return NewConfig(addr, origins)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
