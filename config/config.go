package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nexonext/native/matrix"
)

// LevelPricing is one row of a program's pricing table. Amounts are in base
// currency units.
type LevelPricing struct {
	Level        int   `toml:"Level"`
	Cost         int64 `toml:"Cost"`
	UnfreezeCost int64 `toml:"UnfreezeCost"`
}

// ProgramPricing is the read-only pricing table for one program. It is owned
// by the administrative surface that edits the config file, never by the
// engine.
type ProgramPricing struct {
	Levels []LevelPricing `toml:"Levels"`
}

type Config struct {
	ListenAddress string                    `toml:"ListenAddress"`
	DataDir       string                    `toml:"DataDir"`
	Environment   string                    `toml:"Environment"`
	Programs      map[string]ProgramPricing `toml:"Programs"`
}

// Load loads the configuration from the given path, writing defaults first
// when the file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./nexonext-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.Programs == nil {
		cfg.Programs = defaultPrograms()
	}
}

func defaultPrograms() map[string]ProgramPricing {
	build := func() ProgramPricing {
		levels := make([]LevelPricing, matrix.LevelCount)
		cost := int64(10)
		for i := range levels {
			levels[i] = LevelPricing{Level: i + 1, Cost: cost, UnfreezeCost: cost / 2}
			cost *= 2
		}
		return ProgramPricing{Levels: levels}
	}
	return map[string]ProgramPricing{
		matrix.ProgramLinear: build(),
		matrix.ProgramWide:   build(),
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the pricing tables cover every level of every known program
// with positive costs.
func (c *Config) Validate() error {
	for _, program := range []string{matrix.ProgramLinear, matrix.ProgramWide} {
		pricing, ok := c.Programs[program]
		if !ok {
			return fmt.Errorf("config: program %s has no pricing table", program)
		}
		if len(pricing.Levels) != matrix.LevelCount {
			return fmt.Errorf("config: program %s needs %d levels, has %d", program, matrix.LevelCount, len(pricing.Levels))
		}
		for i, lvl := range pricing.Levels {
			if lvl.Level != i+1 {
				return fmt.Errorf("config: program %s level %d out of order", program, lvl.Level)
			}
			if lvl.Cost <= 0 {
				return fmt.Errorf("config: program %s level %d cost must be positive", program, lvl.Level)
			}
			if lvl.UnfreezeCost <= 0 {
				return fmt.Errorf("config: program %s level %d unfreeze cost must be positive", program, lvl.Level)
			}
		}
	}
	for program := range c.Programs {
		if !matrix.KnownProgram(program) {
			return fmt.Errorf("config: unknown program %s", program)
		}
	}
	return nil
}

// MatrixPrograms converts the pricing tables into the engine's read-only
// configuration form.
func (c *Config) MatrixPrograms() map[string]matrix.ProgramConfig {
	out := make(map[string]matrix.ProgramConfig, len(c.Programs))
	for program, pricing := range c.Programs {
		levels := make([]matrix.LevelConfig, len(pricing.Levels))
		for i, lvl := range pricing.Levels {
			levels[i] = matrix.LevelConfig{
				Level:        lvl.Level,
				Cost:         big.NewInt(lvl.Cost),
				UnfreezeCost: big.NewInt(lvl.UnfreezeCost),
			}
		}
		out[program] = matrix.ProgramConfig{Levels: levels}
	}
	return out
}
