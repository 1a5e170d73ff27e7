package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

const defaults = `
host: 127.0.0.1
port: 3000
data_path: ./data
auth_token: ""
`

// Config is the base configuration shared by MCP and web servers.
//
// Values come from an optional config.yml / config.local.yml pair and are
// overridden by the HOST, PORT, DATA_PATH and AUTH_TOKEN environment
// variables.
type Config struct {
	Host      string `config:"host"`
	Port      int    `config:"port"`
	DataPath  string `config:"data_path"`
	AuthToken string `config:"auth_token"`
}

// Load reads configuration from the directory named by MCP_CONFIG_DIR, if
// set, and the environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("MCP_CONFIG_DIR"))
}

// LoadFrom reads configuration files from dir and applies environment
// overrides. An empty dir skips file loading entirely.
func LoadFrom(dir string) (*Config, error) {
	c := config.NewWithOptions("mcp-core", func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
	})

	c.AddDriver(yaml.Driver)

	if err := c.LoadStrings(config.Yaml, defaults); err != nil {
		return nil, err
	}

	if dir != "" {
		if err := c.LoadExists(filepath.Join(dir, "config.yml")); err != nil {
			return nil, err
		}

		if err := c.LoadExists(filepath.Join(dir, "config.local.yml")); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := c.BindStruct("", &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}

	if v := os.Getenv("DATA_PATH"); v != "" {
		c.DataPath = v
	}

	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
}

// AuthEnabled reports whether an auth token was configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthToken != ""
}

// GetOrGenerateToken returns the configured token, or a freshly generated one
// together with generated = true so the caller can surface it once.
func (c *Config) GetOrGenerateToken() (token string, generated bool, err error) {
	if c.AuthToken != "" {
		return c.AuthToken, false, nil
	}

	token, err = GenerateToken()

	return token, true, err
}

// SocketAddr returns the host:port pair to bind.
func (c *Config) SocketAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolveDataPath safely resolves a user-provided path inside DataPath.
func (c *Config) ResolveDataPath(userPath string) (string, error) {
	return SafeResolve(c.DataPath, userPath)
}
