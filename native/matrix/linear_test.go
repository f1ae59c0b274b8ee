package matrix

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nexonext/core/events"
	"nexonext/core/types"
)

func linearLevel1(t *testing.T, e *Engine) LevelConfig {
	t.Helper()
	cfg, err := e.levelConfig(ProgramLinear, 1)
	require.NoError(t, err)
	return cfg
}

func TestLinearEarlyBoxesPayDirectly(t *testing.T) {
	st := newMockState()
	st.addMember("owner", "", 0)
	st.addMember("buyer", "owner", 0)
	st.setLevel("owner", ProgramLinear, 1, types.LevelActive, nil, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processLinearPayment(st, "buyer", owner, linearLevel1(t, e)))

	lvl := st.level("owner", ProgramLinear, 1)
	require.Equal(t, []string{"buyer"}, lvl.Boxes)
	require.Equal(t, types.LevelActive, lvl.Status)
	require.Equal(t, int64(10), st.balance("owner").Int64())
	require.Empty(t, st.ledger)
}

func TestLinearSecondBoxPaysDirectly(t *testing.T) {
	st := newMockState()
	st.addMember("owner", "", 0)
	st.setLevel("owner", ProgramLinear, 1, types.LevelActive, []string{"earlier"}, 0)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processLinearPayment(st, "buyer", owner, linearLevel1(t, e)))

	lvl := st.level("owner", ProgramLinear, 1)
	require.Equal(t, []string{"earlier", "buyer"}, lvl.Boxes)
	require.Equal(t, int64(10), st.balance("owner").Int64())
}

func TestLinearThirdBoxRecyclesAndPassesUp(t *testing.T) {
	st := newMockState()
	st.addMember("root", "", 0)
	st.addMember("mid", "root", 0)
	st.setLevel("root", ProgramLinear, 1, types.LevelActive, []string{"seed"}, 0)
	st.setLevel("mid", ProgramLinear, 1, types.LevelActive, []string{"a", "b"}, 0)

	e := newTestEngine()
	mid, _, _ := st.GetMember("mid")
	require.NoError(t, e.processLinearPayment(st, "buyer", mid, linearLevel1(t, e)))

	// mid's matrix drained in the same step that filled it, first recycle
	// leaves it active.
	midLvl := st.level("mid", ProgramLinear, 1)
	require.Empty(t, midLvl.Boxes)
	require.Equal(t, uint64(1), midLvl.CurrentCircle)
	require.Equal(t, types.LevelActive, midLvl.Status)
	require.Equal(t, int64(0), st.balance("mid").Int64())

	// the same buyer action landed in root's matrix as box 2 and paid root.
	rootLvl := st.level("root", ProgramLinear, 1)
	require.Equal(t, []string{"seed", "buyer"}, rootLvl.Boxes)
	require.Equal(t, int64(10), st.balance("root").Int64())

	require.Contains(t, st.eventTypes(), events.TypeMatrixRecycled)
	require.Contains(t, st.eventTypes(), events.TypeActionPassedUp)
}

func TestLinearSecondRecycleFreezes(t *testing.T) {
	st := newMockState()
	st.addMember("owner", "", 0)
	st.setLevel("owner", ProgramLinear, 1, types.LevelActive, []string{"a", "b"}, 1)

	e := newTestEngine()
	owner, _, _ := st.GetMember("owner")
	require.NoError(t, e.processLinearPayment(st, "buyer", owner, linearLevel1(t, e)))

	lvl := st.level("owner", ProgramLinear, 1)
	require.Empty(t, lvl.Boxes)
	require.Equal(t, uint64(2), lvl.CurrentCircle)
	require.Equal(t, types.LevelFrozen, lvl.Status)

	// no eligible upline: the cost fell through to the admin ledger.
	require.Len(t, st.ledger, 1)
	require.Equal(t, big.NewInt(10), st.ledger[0].Amount)
	require.Equal(t, ProgramLinear, st.ledger[0].Program)
	require.Equal(t, "buyer", st.ledger[0].FromMember)
	require.Contains(t, st.eventTypes(), events.TypeMatrixFrozen)
}

func TestLinearPassUpCycleAborts(t *testing.T) {
	st := newMockState()
	st.addMember("a", "b", 0)
	st.addMember("b", "a", 0)
	st.setLevel("a", ProgramLinear, 1, types.LevelActive, []string{"x", "y"}, 0)
	st.setLevel("b", ProgramLinear, 1, types.LevelActive, []string{"x", "y"}, 0)

	e := newTestEngine()
	a, _, _ := st.GetMember("a")
	err := e.processLinearPayment(st, "buyer", a, linearLevel1(t, e))
	require.ErrorIs(t, err, ErrBrokenChain)
}

func TestLinearConservationAcrossCascade(t *testing.T) {
	st := newMockState()
	st.addMember("root", "", 0)
	st.addMember("mid", "root", 0)
	st.setLevel("root", ProgramLinear, 1, types.LevelActive, []string{"a", "b"}, 0)
	st.setLevel("mid", ProgramLinear, 1, types.LevelActive, []string{"c", "d"}, 0)

	before := st.totalFunds()
	e := newTestEngine()
	mid, _, _ := st.GetMember("mid")
	require.NoError(t, e.processLinearPayment(st, "buyer", mid, linearLevel1(t, e)))

	// Both matrices recycled and the chain exhausted: exactly one cost amount
	// entered the system, via the admin ledger.
	after := st.totalFunds()
	require.Equal(t, int64(10), new(big.Int).Sub(after, before).Int64())
	require.Len(t, st.ledger, 1)
}
