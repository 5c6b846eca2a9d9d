package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig configures the HTTP API service.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`

	// Raw duration strings for the yaml surface.
	ReadTimeoutStr  string `yaml:"read_timeout"`
	WriteTimeoutStr string `yaml:"write_timeout"`

	// Reload enables live re-reading of the config file while serving
	// (log level and generation defaults only; the bound address is fixed
	// for the life of the process).
	Reload bool `yaml:"reload"`
}

func defaultServer() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8000,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		Reload:       true,
	}
}

// Addr returns the host:port the server binds.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("config: bad server port %d", s.Port)
	}
	var err error
	if s.ReadTimeoutStr != "" {
		if s.ReadTimeout, err = time.ParseDuration(s.ReadTimeoutStr); err != nil {
			return fmt.Errorf("config: bad read_timeout %q: %w", s.ReadTimeoutStr, err)
		}
	}
	if s.WriteTimeoutStr != "" {
		if s.WriteTimeout, err = time.ParseDuration(s.WriteTimeoutStr); err != nil {
			return fmt.Errorf("config: bad write_timeout %q: %w", s.WriteTimeoutStr, err)
		}
	}
	return nil
}
