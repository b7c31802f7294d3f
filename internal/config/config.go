// Package config provides configuration types and loading for acpctl, the
// demo agent/client binary built on top of pkg/acp.
//
// This is intentionally a thin configuration surface: acpctl exists to
// exercise the protocol engine end to end, not to be a production agent.
// It deliberately excludes:
//
//   - NO persistent session storage (sessions live only for the
//     connection's lifetime, per the engine's own no-persistence design)
//   - NO multi-agent routing or upstream pooling
//   - NO TLS (stdio transport only)
//   - NO SSO/SAML/enterprise auth; "authenticate" gating is a single
//     shared-secret demonstration of the wire-level handshake
package config

// ACPCTLConfig is the top-level configuration for acpctl.
type ACPCTLConfig struct {
	// Agent configures how `acpctl client` spawns and talks to an agent
	// subprocess. Unused by `acpctl agent`.
	Agent AgentConfig `yaml:"agent" mapstructure:"agent"`

	// Auth configures the demo shared-secret gate `acpctl agent` applies
	// to the "authenticate" method.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Policy configures the optional CEL method policy evaluator.
	Policy PolicyConfig `yaml:"policy" mapstructure:"policy"`

	// Metrics configures the optional Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// LogLevel is one of "debug", "info", "warn", "error". Default "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// DevMode enables verbose (debug) logging. It does not change the
	// policy or auth gates.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// AgentConfig names the agent subprocess `acpctl client` should spawn.
type AgentConfig struct {
	// Path is the agent executable, resolved via PATH if not absolute.
	Path string `yaml:"path" mapstructure:"path"`
	// Args are extra arguments passed to the agent process.
	Args []string `yaml:"args" mapstructure:"args"`
	// Name is a human-readable label for the agent. It has no default and
	// acpctl does not currently read it.
	Name string `yaml:"name" mapstructure:"name"`
	// SharedSecret is the plaintext credential `acpctl client` presents
	// to an agent that advertises the "shared-secret" auth method. It is
	// never hashed on the client side; AuthConfig.SharedSecretHash is
	// what the agent side checks it against.
	SharedSecret string `yaml:"shared_secret" mapstructure:"shared_secret"`
}

// AuthConfig configures the demo shared-secret authentication gate.
type AuthConfig struct {
	// Enabled turns on the gate; when false, "authenticate" always
	// succeeds.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SharedSecretHash is an argon2id hash (as produced by
	// github.com/alexedwards/argon2id.CreateHash) of the shared secret
	// clients must present.
	SharedSecretHash string `yaml:"shared_secret_hash" mapstructure:"shared_secret_hash"`
}

// PolicyConfig configures the CEL method policy evaluator.
type PolicyConfig struct {
	// Expression is a CEL boolean expression over `method`, `session_id`,
	// and `params`. Empty means pass-through (no gating).
	Expression string `yaml:"expression" mapstructure:"expression"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// SetDefaults fills in zero-valued optional fields.
func (c *ACPCTLConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "127.0.0.1:9090"
	}
}

// SetDevDefaults relaxes the config for local development, applied after
// SetDefaults and before Validate.
func (c *ACPCTLConfig) SetDevDefaults() {
	if c.DevMode {
		c.LogLevel = "debug"
	}
}
