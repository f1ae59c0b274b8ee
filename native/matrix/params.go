package matrix

import "math/big"

// Program keys. The linear program routes through a 3-slot matrix, the wide
// program through a 6-slot matrix with pass-up spillover.
const (
	ProgramLinear = "3p"
	ProgramWide   = "6p"
)

// LevelCount is the number of purchasable levels per program.
const LevelCount = 6

// passUpLimit bounds the pass-up walk so a malformed referral graph cannot
// spin the engine forever. The visited-set guard fires first on any cycle;
// this is a hard backstop for graphs deeper than any legitimate chain.
const passUpLimit = 10_000

func matrixCapacity(program string) int {
	switch program {
	case ProgramLinear:
		return 3
	case ProgramWide:
		return 6
	default:
		return 0
	}
}

// KnownProgram reports whether the key names a supported program.
func KnownProgram(program string) bool {
	return matrixCapacity(program) > 0
}

// LevelConfig is the read-only pricing for one level of a program, owned by
// the external configuration collaborator.
type LevelConfig struct {
	Level        int
	Cost         *big.Int
	UnfreezeCost *big.Int
}

// ProgramConfig carries the per-level pricing table for one program.
type ProgramConfig struct {
	Levels []LevelConfig
}

// Level returns the configuration for the 1-indexed level, if present.
func (p ProgramConfig) Level(level int) (LevelConfig, bool) {
	if level < 1 || level > len(p.Levels) {
		return LevelConfig{}, false
	}
	cfg := p.Levels[level-1]
	if cfg.Cost == nil {
		return LevelConfig{}, false
	}
	return cfg, true
}
