package types

import (
	"math/big"
	"time"
)

// LevelStatus tracks where a purchased level sits in its lifecycle.
type LevelStatus string

const (
	// LevelLocked is the initial state of every level before purchase.
	LevelLocked LevelStatus = "locked"
	// LevelActive marks a purchased level whose matrix can receive boxes.
	LevelActive LevelStatus = "active"
	// LevelFrozen marks a level whose matrix recycled a second time and can
	// no longer receive boxes or payouts until unfrozen.
	LevelFrozen LevelStatus = "frozen"
)

// LevelState holds the matrix state of a single purchasable level.
type LevelState struct {
	Level         int         `json:"level"`
	Status        LevelStatus `json:"status"`
	Boxes         []string    `json:"boxes"`
	CurrentCircle uint64      `json:"currentCircle"`
}

// PackageState is the ordered sequence of level states for one program.
// Levels are indexed by level-1.
type PackageState struct {
	Levels []LevelState `json:"levels"`
}

// NewPackageState returns a package with n locked, empty levels.
func NewPackageState(n int) PackageState {
	levels := make([]LevelState, n)
	for i := range levels {
		levels[i] = LevelState{Level: i + 1, Status: LevelLocked, Boxes: []string{}}
	}
	return PackageState{Levels: levels}
}

// Member is a participant in the compensation scheme. ReferredBy is a weak
// parent pointer; the referral structure is a forest and nothing in the data
// model itself prevents cycles, so chain walks must guard against revisits.
type Member struct {
	ID           string                  `json:"id"`
	Email        string                  `json:"email"`
	ReferralCode string                  `json:"referralCode"`
	ReferredBy   string                  `json:"referredBy,omitempty"`
	Balance      *big.Int                `json:"balance"`
	Packages     map[string]PackageState `json:"packages"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// LevelState returns the state for program/level, or nil when the member does
// not participate in the program or the level number is out of range. The
// returned pointer aliases the member's stored levels slice, so mutations
// stick when the member is written back.
func (m *Member) LevelState(program string, level int) *LevelState {
	if m == nil || m.Packages == nil {
		return nil
	}
	pkg, ok := m.Packages[program]
	if !ok || level < 1 || level > len(pkg.Levels) {
		return nil
	}
	return &pkg.Levels[level-1]
}

// EnsureBalance normalises a nil balance to zero.
func (m *Member) EnsureBalance() {
	if m.Balance == nil {
		m.Balance = big.NewInt(0)
	}
}

// Credit adds amount to the member balance.
func (m *Member) Credit(amount *big.Int) {
	m.EnsureBalance()
	m.Balance = new(big.Int).Add(m.Balance, amount)
}

// Debit subtracts amount from the member balance. Callers are expected to have
// verified sufficiency first.
func (m *Member) Debit(amount *big.Int) {
	m.EnsureBalance()
	m.Balance = new(big.Int).Sub(m.Balance, amount)
}

// Clone deep-copies the member so stores can hand out snapshots without
// aliasing internal state.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	clone := &Member{
		ID:           m.ID,
		Email:        m.Email,
		ReferralCode: m.ReferralCode,
		ReferredBy:   m.ReferredBy,
		CreatedAt:    m.CreatedAt,
	}
	if m.Balance != nil {
		clone.Balance = new(big.Int).Set(m.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	if m.Packages != nil {
		clone.Packages = make(map[string]PackageState, len(m.Packages))
		for key, pkg := range m.Packages {
			levels := make([]LevelState, len(pkg.Levels))
			for i, lvl := range pkg.Levels {
				levels[i] = LevelState{
					Level:         lvl.Level,
					Status:        lvl.Status,
					Boxes:         append([]string(nil), lvl.Boxes...),
					CurrentCircle: lvl.CurrentCircle,
				}
			}
			clone.Packages[key] = PackageState{Levels: levels}
		}
	}
	return clone
}
