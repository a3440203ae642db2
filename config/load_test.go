package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
env: test
venue:
  url: ws://localhost:9000
  account: acct
  password: pw
engine:
  decay: 0.9
  confidence: 0.95
  refreshInterval: 16
  dispatchRate: 4
  riskPenalty: 0.01
logger:
  level: info
  outputs: [stdout]
  format: json
metricsAddr: ":9100"
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.DispatchRate != 4 || cfg.Engine.Decay != 0.9 {
		t.Fatalf("unexpected engine params: %+v", cfg.Engine)
	}
	if cfg.Venue.URL != "ws://localhost:9000" {
		t.Fatalf("unexpected venue: %+v", cfg.Venue)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateEngineParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EngineParams)
	}{
		{"decay too high", func(p *EngineParams) { p.Decay = 1 }},
		{"decay negative", func(p *EngineParams) { p.Decay = -0.1 }},
		{"confidence out of range", func(p *EngineParams) { p.Confidence = 1.5 }},
		{"zero refresh", func(p *EngineParams) { p.RefreshInterval = 0 }},
		{"rate too low", func(p *EngineParams) { p.DispatchRate = 1 }},
		{"negative penalty", func(p *EngineParams) { p.RiskPenalty = -1 }},
	}
	for _, tc := range cases {
		p := DefaultEngineParams()
		tc.mutate(&p)
		if err := ValidateEngineParams(p); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
	if err := ValidateEngineParams(DefaultEngineParams()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRequiresVenueUnlessDryRun(t *testing.T) {
	cfg := AppConfig{Env: "test", Engine: DefaultEngineParams()}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error without venue config")
	}
	cfg.Venue.DryRun = true
	if err := Validate(cfg); err != nil {
		t.Fatalf("dryRun should not require venue: %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SA_VENUE_ACCOUNT", "override")
	cfg, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Venue.Account != "override" {
		t.Fatalf("expected env override, got %s", cfg.Venue.Account)
	}
}
