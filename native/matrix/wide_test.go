package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nexonext/core/events"
	"nexonext/core/types"
)

func wideLevel1(t *testing.T, e *Engine) LevelConfig {
	t.Helper()
	cfg, err := e.levelConfig(ProgramWide, 1)
	require.NoError(t, err)
	return cfg
}

func TestWideFirstBoxPassesUp(t *testing.T) {
	st := newMockState()
	st.addMember("root", "", 0)
	st.addMember("owner", "root", 0)
	st.addMember("buyer", "owner", 0)
	st.setLevel("root", ProgramWide, 1, types.LevelActive, nil, 0)
	st.setLevel("owner", ProgramWide, 1, types.LevelActive, nil, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

	// box recorded at both hops, no payout anywhere: the action cascaded off
	// the top of the chain into the admin ledger.
	require.Equal(t, []string{"buyer"}, st.level("owner", ProgramWide, 1).Boxes)
	require.Equal(t, []string{"buyer"}, st.level("root", ProgramWide, 1).Boxes)
	require.Equal(t, int64(0), st.balance("owner").Int64())
	require.Equal(t, int64(0), st.balance("root").Int64())
	require.Len(t, st.ledger, 1)
	require.Equal(t, int64(10), st.ledger[0].Amount.Int64())
}

func TestWideHybridSlotPaysOwnerAndSeedsBuyer(t *testing.T) {
	st := newMockState()
	st.addMember("owner", "", 0)
	st.addMember("buyer", "owner", 0)
	st.setLevel("owner", ProgramWide, 1, types.LevelActive, []string{"earlier"}, 0)
	st.setLevel("buyer", ProgramWide, 1, types.LevelActive, nil, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

	require.Equal(t, []string{"earlier", "buyer"}, st.level("owner", ProgramWide, 1).Boxes)
	require.Equal(t, int64(10), st.balance("owner").Int64())
	// the buyer's own matrix received one self-referential box.
	require.Equal(t, []string{"buyer"}, st.level("buyer", ProgramWide, 1).Boxes)
	require.Equal(t, int64(0), st.balance("buyer").Int64())
	require.Contains(t, st.eventTypes(), events.TypeBoxSelfSeeded)
	require.Empty(t, st.ledger)
}

func TestWideDirectPaymentSlots(t *testing.T) {
	for _, preset := range [][]string{
		{"a", "b"},
		{"a", "b", "c"},
		{"a", "b", "c", "d"},
	} {
		st := newMockState()
		st.addMember("owner", "", 0)
		st.setLevel("owner", ProgramWide, 1, types.LevelActive, preset, 0)

		e := newTestEngine()
		owner, _, _ := st.GetMember("owner")
		require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

		lvl := st.level("owner", ProgramWide, 1)
		require.Len(t, lvl.Boxes, len(preset)+1)
		require.Equal(t, int64(10), st.balance("owner").Int64())
		require.Equal(t, uint64(0), lvl.CurrentCircle)
		require.Empty(t, st.ledger)
	}
}

func TestWideSixthBoxPassesUpThenRecycles(t *testing.T) {
	st := newMockState()
	st.addMember("root", "", 0)
	st.addMember("owner", "root", 0)
	st.addMember("buyer", "owner", 0)
	st.setLevel("root", ProgramWide, 1, types.LevelActive, []string{"x"}, 0)
	st.setLevel("owner", ProgramWide, 1, types.LevelActive, []string{"a", "b", "c", "d", "e"}, 0)
	st.setLevel("buyer", ProgramWide, 1, types.LevelActive, nil, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

	// pass-up landed in root's hybrid slot: root paid, buyer seeded.
	require.Equal(t, []string{"x", "buyer"}, st.level("root", ProgramWide, 1).Boxes)
	require.Equal(t, int64(10), st.balance("root").Int64())
	require.Equal(t, []string{"buyer"}, st.level("buyer", ProgramWide, 1).Boxes)

	// afterwards the owner's full matrix drained: first recycle stays active.
	lvl := st.level("owner", ProgramWide, 1)
	require.Empty(t, lvl.Boxes)
	require.Equal(t, uint64(1), lvl.CurrentCircle)
	require.Equal(t, types.LevelActive, lvl.Status)
	require.Equal(t, int64(0), st.balance("owner").Int64())
}

func TestWideChainedFullMatricesRecycleInUnwindOrder(t *testing.T) {
	st := newMockState()
	st.addMember("root", "", 0)
	st.addMember("mid", "root", 0)
	st.addMember("owner", "mid", 0)
	st.addMember("buyer", "owner", 0)
	st.setLevel("root", ProgramWide, 1, types.LevelActive, []string{"x", "y"}, 0)
	st.setLevel("mid", ProgramWide, 1, types.LevelActive, []string{"f", "g", "h", "i", "j"}, 1)
	st.setLevel("owner", ProgramWide, 1, types.LevelActive, []string{"a", "b", "c", "d", "e"}, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

	// the action traversed two full matrices and settled in root's third box.
	require.Equal(t, []string{"x", "y", "buyer"}, st.level("root", ProgramWide, 1).Boxes)
	require.Equal(t, int64(10), st.balance("root").Int64())
	require.Empty(t, st.ledger)

	// both full matrices drained only after the payout settled, nearest the
	// recipient first: mid unwinds before owner.
	var recycled []string
	for _, evt := range st.events {
		if evt.Type == events.TypeMatrixRecycled {
			recycled = append(recycled, evt.Attributes["owner"])
		}
	}
	require.Equal(t, []string{"mid", "owner"}, recycled)

	ownerLvl := st.level("owner", ProgramWide, 1)
	require.Empty(t, ownerLvl.Boxes)
	require.Equal(t, uint64(1), ownerLvl.CurrentCircle)
	require.Equal(t, types.LevelActive, ownerLvl.Status)

	// mid was on its second circle, so its recycle froze the level.
	midLvl := st.level("mid", ProgramWide, 1)
	require.Empty(t, midLvl.Boxes)
	require.Equal(t, uint64(2), midLvl.CurrentCircle)
	require.Equal(t, types.LevelFrozen, midLvl.Status)
}

func TestWideSecondRecycleFreezes(t *testing.T) {
	st := newMockState()
	st.addMember("owner", "", 0)
	st.setLevel("owner", ProgramWide, 1, types.LevelActive, []string{"a", "b", "c", "d", "e"}, 1)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processWidePayment(st, "buyer", owner, wideLevel1(t, e)))

	lvl := st.level("owner", ProgramWide, 1)
	require.Empty(t, lvl.Boxes)
	require.Equal(t, uint64(2), lvl.CurrentCircle)
	require.Equal(t, types.LevelFrozen, lvl.Status)
	// no upline: the sixth-box action fell through to the admin ledger.
	require.Len(t, st.ledger, 1)
	require.Contains(t, st.eventTypes(), events.TypeMatrixFrozen)
}
