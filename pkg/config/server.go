package config

import "fmt"

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address. Empty means all interfaces.
	Host string `yaml:"host"`

	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// AllowedWSOrigins lists origin patterns accepted on the browser ingest
	// socket. Empty means same-origin only.
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host: "",
		Port: 8080,
	}
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Port)
	}
	return nil
}
