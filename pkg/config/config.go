package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultGRPCServerPort is the RPC listen port when neither flag nor
// environment variable is set (spec §6).
const DefaultGRPCServerPort = 21001

// DefaultRDCServer is the upstream RDC endpoint host when unset.
const DefaultRDCServer = "127.0.0.1"

// Config is the agent's runtime configuration.
type Config struct {
	GRPCServerPort int    `env:"AGA_GRPC_SERVER_PORT" env-default:"21001"`
	RDCServer      string `env:"AGA_RDC_SERVER" env-default:"127.0.0.1"`
}

// Load reads environment variables into a Config seeded with the
// spec's defaults. Call ApplyFlags afterward so explicit CLI flags
// take precedence over the environment.
func Load() (Config, error) {
	cfg := Config{GRPCServerPort: DefaultGRPCServerPort, RDCServer: DefaultRDCServer}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: reading environment: %w", err)
	}
	return cfg, nil
}

// ApplyFlags overrides cfg with any flag the caller explicitly passed
// (a zero port or empty host means "not set").
func (c Config) ApplyFlags(port int, rdcServer string) Config {
	if port != 0 {
		c.GRPCServerPort = port
	}
	if rdcServer != "" {
		c.RDCServer = rdcServer
	}
	return c
}

// Validate checks the fields the CLI must reject (spec §6: port
// validated to (0, 65535]).
func (c Config) Validate() error {
	if c.GRPCServerPort <= 0 || c.GRPCServerPort > 65535 {
		return fmt.Errorf("config: grpc server port %d out of range (0, 65535]", c.GRPCServerPort)
	}
	if c.RDCServer == "" {
		return fmt.Errorf("config: rdc server host must not be empty")
	}
	return nil
}

// ListenAddr is the RPC server bind address: 0.0.0.0:<port> (spec §6).
func (c Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.GRPCServerPort)
}
