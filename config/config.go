package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/oncall/core/factory"
	"github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/relax"
	"github.com/kilianp07/oncall/infra/mqtt"
	"github.com/kilianp07/oncall/infra/runlog"
	"github.com/kilianp07/oncall/infra/sheet"
)

// EnvPrefix marks environment overrides: ONCALL_RELAXATION__STEP_TIMEOUT_MS
// sets relaxation.step_timeout_ms.
const EnvPrefix = "ONCALL_"

// GridConfig holds the code table used to classify input cells. A
// configured table replaces the default one.
type GridConfig struct {
	Codes model.CodeTable `json:"codes"`
}

type Config struct {
	Log        LogConfig            `json:"log"`
	Grid       GridConfig           `json:"grid"`
	Solver     factory.ModuleConfig `json:"solver"`
	Relaxation relax.Config         `json:"relaxation"`
	RunLog     runlog.Config        `json:"runlog"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Sentry     monitoring.Config    `json:"sentry"`
	Sheet      sheet.Layout         `json:"sheet"`
	API        APIConfig            `json:"api"`
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	if len(c.Grid.Codes.Assignable) == 0 {
		c.Grid.Codes = model.DefaultCodeTable()
	}
	if c.Solver.Type == "" {
		c.Solver.Type = "gini"
	}
	c.Relaxation.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
	c.Sheet.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Grid.Codes.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Relaxation.Validate(); err != nil {
		return err
	}
	if err := c.RunLog.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	return c.Sheet.Validate()
}

// Default returns the configuration used without a config file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads the file at path, applies environment overrides, then
// defaults. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
