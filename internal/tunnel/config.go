package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	ModeProxy = "proxy"

	DefaultLocalSOCKSPort = 1080
)

var (
	ErrMissingServerHost = errors.New("server_host missing")
	ErrMissingKey        = errors.New("key missing")
	ErrMissingEncryptKey = errors.New("encrypt key missing")
	ErrUnsupportedMode   = errors.New("unsupported mode")
)

// Config describes one tunnel client.
type Config struct {
	ServerHost     string `yaml:"server_host"`
	ServerPort     *int   `yaml:"server_port"`
	LocalSOCKSPort int    `yaml:"local_socks_port"`

	// Key is the numeric tunnel key, required unless EncryptMode is set.
	Key *int `yaml:"key"`

	Mode        string `yaml:"mode"`
	EncryptMode string `yaml:"encrypt_mode"`
	EncryptKey  string `yaml:"encrypt_key"`
}

// LoadConfig reads and validates a YAML tunnel config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tunnel config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML tunnel config. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{LocalSOCKSPort: DefaultLocalSOCKSPort, Mode: ModeProxy}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse tunnel config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.ServerHost = strings.TrimSpace(c.ServerHost)
	c.EncryptMode = strings.TrimSpace(c.EncryptMode)

	if c.ServerHost == "" {
		return ErrMissingServerHost
	}
	if c.ServerPort != nil && (*c.ServerPort < 1 || *c.ServerPort > 65535) {
		return fmt.Errorf("server_port %d out of range", *c.ServerPort)
	}
	if c.LocalSOCKSPort < 1 || c.LocalSOCKSPort > 65535 {
		return fmt.Errorf("local_socks_port %d out of range", c.LocalSOCKSPort)
	}
	if c.Mode != ModeProxy {
		return fmt.Errorf("%w: %q", ErrUnsupportedMode, c.Mode)
	}

	if c.EncryptMode == "" {
		if c.Key == nil {
			return ErrMissingKey
		}
	} else if strings.TrimSpace(c.EncryptKey) == "" {
		return ErrMissingEncryptKey
	}

	return nil
}

// ServerAddress returns the tunnel server as host or host:port.
func (c *Config) ServerAddress() string {
	if c.ServerPort == nil {
		return c.ServerHost
	}
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(*c.ServerPort))
}
