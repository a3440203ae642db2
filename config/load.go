package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stat-arb-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string        `yaml:"env"`
	Venue       VenueConfig   `yaml:"venue"`
	Engine      EngineParams  `yaml:"engine"`
	Logger      logger.Config `yaml:"logger"`
	MetricsAddr string        `yaml:"metricsAddr"`
}

// VenueConfig 场内会话配置。
type VenueConfig struct {
	URL      string `yaml:"url"`
	Account  string `yaml:"account"`
	Password string `yaml:"password"`
	DryRun   bool   `yaml:"dryRun"`
}

// EngineParams 决策引擎可调参数；支持热更新。
type EngineParams struct {
	Decay           float64 `yaml:"decay"`           // 时间加权方差衰减因子
	Confidence      float64 `yaml:"confidence"`      // 流动性套利置信水平
	RefreshInterval int     `yaml:"refreshInterval"` // 活跃单允许的刷新次数
	DispatchRate    int     `yaml:"dispatchRate"`    // 每秒最大下发数
	RiskPenalty     float64 `yaml:"riskPenalty"`     // 风险惩罚系数
}

// DefaultEngineParams 返回默认引擎参数。
func DefaultEngineParams() EngineParams {
	return EngineParams{
		Decay:           0.9,
		Confidence:      0.95,
		RefreshInterval: 16,
		DispatchRate:    4,
		RiskPenalty:     0.01,
	}
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("SA_VENUE_ACCOUNT"); v != "" {
		cfg.Venue.Account = v
	}
	if v := os.Getenv("SA_VENUE_PASSWORD"); v != "" {
		cfg.Venue.Password = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if !cfg.Venue.DryRun {
		if cfg.Venue.URL == "" {
			return errors.New("venue.url is required unless dryRun")
		}
		if cfg.Venue.Account == "" {
			return errors.New("venue.account is required unless dryRun (or env override)")
		}
	}
	return ValidateEngineParams(cfg.Engine)
}

// ValidateEngineParams 校验引擎参数区间；热更新前也会调用。
func ValidateEngineParams(p EngineParams) error {
	if p.Decay <= 0 || p.Decay >= 1 {
		return fmt.Errorf("engine.decay must be in (0,1), got %v", p.Decay)
	}
	if p.Confidence <= 0 || p.Confidence >= 1 {
		return fmt.Errorf("engine.confidence must be in (0,1), got %v", p.Confidence)
	}
	if p.RefreshInterval <= 0 {
		return fmt.Errorf("engine.refreshInterval must be > 0, got %d", p.RefreshInterval)
	}
	if p.DispatchRate <= 1 {
		return fmt.Errorf("engine.dispatchRate must be > 1, got %d", p.DispatchRate)
	}
	if p.RiskPenalty < 0 {
		return fmt.Errorf("engine.riskPenalty must be >= 0, got %v", p.RiskPenalty)
	}
	return nil
}
