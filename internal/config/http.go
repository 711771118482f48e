package config

import "os"

type HTTPConfig struct {
	Port string
}

func NewHTTPConfig() *HTTPConfig {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	return &HTTPConfig{
		Port: port,
	}
}

// Enabled reports whether the ops endpoint should be served. HTTP_PORT=off disables it.
func (c *HTTPConfig) Enabled() bool {
	return c.Port != "off"
}
