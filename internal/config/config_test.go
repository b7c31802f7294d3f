package config

import "testing"

func TestACPCTLConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg ACPCTLConfig
	cfg.SetDefaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Metrics.Addr != "127.0.0.1:9090" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, "127.0.0.1:9090")
	}
}

func TestACPCTLConfig_SetDefaultsDoesNotOverrideExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := ACPCTLConfig{LogLevel: "debug", Metrics: MetricsConfig{Addr: "0.0.0.0:1234"}}
	cfg.SetDefaults()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q (explicit value preserved)", cfg.LogLevel, "debug")
	}
	if cfg.Metrics.Addr != "0.0.0.0:1234" {
		t.Errorf("Metrics.Addr = %q, want %q (explicit value preserved)", cfg.Metrics.Addr, "0.0.0.0:1234")
	}
}

func TestACPCTLConfig_SetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := ACPCTLConfig{DevMode: true, LogLevel: "info"}
	cfg.SetDevDefaults()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q in dev mode", cfg.LogLevel, "debug")
	}
}

func TestACPCTLConfig_SetDevDefaultsNoopWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := ACPCTLConfig{DevMode: false, LogLevel: "info"}
	cfg.SetDevDefaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want unchanged %q", cfg.LogLevel, "info")
	}
}
