package matrix

import (
	"fmt"
	"math/big"
	"time"

	"nexonext/core/types"
)

type mockState struct {
	members map[string]*types.Member
	emails  map[string]string
	ledger  []*types.LedgerEntry
	gifts   []*types.GiftTransfer
	events  []types.Event
}

func newMockState() *mockState {
	return &mockState{
		members: make(map[string]*types.Member),
		emails:  make(map[string]string),
	}
}

func (m *mockState) GetMember(id string) (*types.Member, bool, error) {
	member, ok := m.members[id]
	if !ok {
		return nil, false, nil
	}
	return member.Clone(), true, nil
}

func (m *mockState) GetMemberByEmail(email string) (*types.Member, bool, error) {
	id, ok := m.emails[email]
	if !ok {
		return nil, false, nil
	}
	return m.GetMember(id)
}

func (m *mockState) PutMember(member *types.Member) error {
	m.members[member.ID] = member.Clone()
	if member.Email != "" {
		m.emails[member.Email] = member.ID
	}
	return nil
}

func (m *mockState) AppendLedgerEntry(entry *types.LedgerEntry) error {
	m.ledger = append(m.ledger, entry)
	return nil
}

func (m *mockState) AppendGift(gift *types.GiftTransfer) error {
	m.gifts = append(m.gifts, gift)
	return nil
}

func (m *mockState) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.events = append(m.events, *evt)
}

func (m *mockState) eventTypes() []string {
	out := make([]string, 0, len(m.events))
	for _, evt := range m.events {
		out = append(out, evt.Type)
	}
	return out
}

// addMember registers a member with both program packages and the given
// balance. referredBy may be empty.
func (m *mockState) addMember(id, referredBy string, balance int64) *types.Member {
	member := &types.Member{
		ID:           id,
		Email:        id + "@example.com",
		ReferralCode: id,
		ReferredBy:   referredBy,
		Balance:      big.NewInt(balance),
		Packages: map[string]types.PackageState{
			ProgramLinear: types.NewPackageState(LevelCount),
			ProgramWide:   types.NewPackageState(LevelCount),
		},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	m.members[id] = member
	m.emails[member.Email] = id
	return member
}

func (m *mockState) setLevel(id, program string, level int, status types.LevelStatus, boxes []string, circle uint64) {
	lvl := m.members[id].LevelState(program, level)
	lvl.Status = status
	lvl.Boxes = append([]string{}, boxes...)
	lvl.CurrentCircle = circle
}

func (m *mockState) level(id, program string, level int) *types.LevelState {
	return m.members[id].LevelState(program, level)
}

func (m *mockState) balance(id string) *big.Int {
	return m.members[id].Balance
}

func testPrograms() map[string]ProgramConfig {
	build := func() ProgramConfig {
		levels := make([]LevelConfig, LevelCount)
		for i := range levels {
			levels[i] = LevelConfig{
				Level:        i + 1,
				Cost:         big.NewInt(int64(10 * (i + 1))),
				UnfreezeCost: big.NewInt(int64(5 * (i + 1))),
			}
		}
		return ProgramConfig{Levels: levels}
	}
	return map[string]ProgramConfig{
		ProgramLinear: build(),
		ProgramWide:   build(),
	}
}

func newTestEngine() *Engine {
	e := NewEngine(testPrograms())
	e.SetNowFunc(func() time.Time { return time.Unix(1700000100, 0).UTC() })
	seq := 0
	e.SetIDFunc(func() string {
		seq++
		return fmt.Sprintf("entry-%d", seq)
	})
	return e
}

// totalFunds sums member balances and admin ledger credits, the quantity the
// conservation property holds constant across purchases and unfreezes.
func (m *mockState) totalFunds() *big.Int {
	total := big.NewInt(0)
	for _, member := range m.members {
		if member.Balance != nil {
			total.Add(total, member.Balance)
		}
	}
	for _, entry := range m.ledger {
		total.Add(total, entry.Amount)
	}
	return total
}
