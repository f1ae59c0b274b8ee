package matrix

import (
	"fmt"

	"nexonext/core/types"
)

// directReferrer resolves a member's direct referrer. The second return is
// false when the member has no referrer or the referenced record is missing;
// a missing record signals a broken chain, not a program error.
func directReferrer(st State, m *types.Member) (*types.Member, bool, error) {
	if m == nil || m.ReferredBy == "" {
		return nil, false, nil
	}
	referrer, ok, err := st.GetMember(m.ReferredBy)
	if err != nil {
		return nil, false, fmt.Errorf("resolve referrer of %s: %w", m.ID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return referrer, true, nil
}

// findEligibleUpline walks strictly upward from start's direct referrer and
// returns the nearest ancestor whose program/level status is active. Frozen
// and locked ancestors are skipped, never returned: a frozen matrix cannot
// receive new boxes or payouts. The walk returns nil when the chain is
// exhausted or a referenced member is missing, and fails with ErrBrokenChain
// when the parent pointers revisit a member.
func (e *Engine) findEligibleUpline(st State, start *types.Member, program string, level int) (*types.Member, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if start == nil {
		return nil, nil
	}
	visited := map[string]struct{}{start.ID: {}}
	current, ok, err := directReferrer(st, start)
	if err != nil {
		return nil, err
	}
	for ok {
		if _, seen := visited[current.ID]; seen {
			return nil, fmt.Errorf("%w: %s", ErrBrokenChain, current.ID)
		}
		visited[current.ID] = struct{}{}
		if lvl := current.LevelState(program, level); lvl != nil && lvl.Status == types.LevelActive {
			return current, nil
		}
		current, ok, err = directReferrer(st, current)
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}
