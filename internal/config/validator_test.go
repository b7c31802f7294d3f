package config

import (
	"strings"
	"testing"
)

func minimalValidConfig() *ACPCTLConfig {
	cfg := &ACPCTLConfig{
		Agent: AgentConfig{Path: "/usr/local/bin/my-agent"},
	}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_AuthEnabledWithoutHash(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Auth.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() with auth.enabled and no hash: want error, got nil")
	}
	if !strings.Contains(err.Error(), "shared_secret_hash") {
		t.Errorf("Validate() error = %v, want mention of shared_secret_hash", err)
	}
}

func TestValidate_AuthEnabledWithHash(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.SharedSecretHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHQ$aGFzaA"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with invalid log_level: want error, got nil")
	}
}

func TestValidate_InvalidPolicyExpression(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Policy.Expression = "method +++ nonsense((("

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with unparsable policy expression: want error, got nil")
	}
}

func TestValidate_ValidPolicyExpression(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Policy.Expression = `method != "terminal/create"`

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
