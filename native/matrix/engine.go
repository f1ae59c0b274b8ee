package matrix

import (
	"math/big"
	"time"

	"nexonext/core/types"
)

// State describes the functionality the engine needs from the transaction it
// runs inside. Every mutation performed through a State belongs to one atomic
// unit of work; the persistence collaborator commits or rolls back the whole
// set.
type State interface {
	// GetMember returns the member record, reporting absence via the bool.
	GetMember(id string) (*types.Member, bool, error)
	// GetMemberByEmail resolves a member through the email index.
	GetMemberByEmail(email string) (*types.Member, bool, error)
	// PutMember writes the member record back.
	PutMember(m *types.Member) error
	// AppendLedgerEntry appends an immutable admin-earnings record.
	AppendLedgerEntry(entry *types.LedgerEntry) error
	// AppendGift appends an immutable gift-transfer record.
	AppendGift(gift *types.GiftTransfer) error
	// AppendEvent collects an event for post-commit observers.
	AppendEvent(evt *types.Event)
}

// Engine implements the matrix compensation distribution logic over a State.
// It holds no mutable run state of its own; program pricing is the read-only
// configuration collaborator.
type Engine struct {
	programs map[string]ProgramConfig
	nowFn    func() time.Time
	idFn     func() string
}

// NewEngine creates an engine for the given program pricing tables.
func NewEngine(programs map[string]ProgramConfig) *Engine {
	cloned := make(map[string]ProgramConfig, len(programs))
	for key, cfg := range programs {
		levels := make([]LevelConfig, len(cfg.Levels))
		for i, lvl := range cfg.Levels {
			levels[i] = LevelConfig{Level: lvl.Level}
			if lvl.Cost != nil {
				levels[i].Cost = new(big.Int).Set(lvl.Cost)
			}
			if lvl.UnfreezeCost != nil {
				levels[i].UnfreezeCost = new(big.Int).Set(lvl.UnfreezeCost)
			}
		}
		cloned[key] = ProgramConfig{Levels: levels}
	}
	return &Engine{programs: cloned, nowFn: time.Now, idFn: newEntryID}
}

// SetNowFunc overrides the engine's time source. Passing nil restores the
// wall clock. Intended for tests.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// SetIDFunc overrides the identifier source used for ledger and gift records.
// Passing nil restores random UUIDs. Intended for tests.
func (e *Engine) SetIDFunc(id func() string) {
	if id == nil {
		e.idFn = newEntryID
		return
	}
	e.idFn = id
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

func (e *Engine) newID() string {
	if e == nil || e.idFn == nil {
		return newEntryID()
	}
	return e.idFn()
}

// levelConfig resolves the pricing for program/level. A known program whose
// table is absent or incomplete is a server-side configuration defect.
func (e *Engine) levelConfig(program string, level int) (LevelConfig, error) {
	if !KnownProgram(program) {
		return LevelConfig{}, ErrUnknownProgram
	}
	if level < 1 || level > LevelCount {
		return LevelConfig{}, ErrUnknownLevel
	}
	prog, ok := e.programs[program]
	if !ok {
		return LevelConfig{}, ErrConfigMissing
	}
	cfg, ok := prog.Level(level)
	if !ok {
		return LevelConfig{}, ErrConfigMissing
	}
	return cfg, nil
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
