package matrix

import (
	"fmt"

	"nexonext/core/events"
	"nexonext/core/types"
)

// recycleLevel drains a full matrix and advances its circle counter. The
// freeze transition fires on the recycle where the pre-increment circle is
// already >= 1, i.e. the second and every later recycle.
func recycleLevel(st State, owner *types.Member, lvl *types.LevelState, program string) {
	freeze := lvl.CurrentCircle >= 1
	lvl.Boxes = []string{}
	lvl.CurrentCircle++
	if freeze {
		lvl.Status = types.LevelFrozen
	}
	st.AppendEvent(events.NewMatrixRecycled(owner.ID, program, lvl.Level, lvl.CurrentCircle))
	if freeze {
		st.AppendEvent(events.NewMatrixFrozen(owner.ID, program, lvl.Level, lvl.CurrentCircle))
	}
}

// processLinearPayment runs the 3-slot matrix for one buyer action. The
// source behavior is recursive; here the pass-up is an explicit loop over the
// current recipient with a revisit guard, so a malformed chain aborts the
// transaction instead of recursing without bound.
//
// Slot semantics, keyed on the box count after the append:
//
//	n <= 2  pay cost to the matrix owner, stop
//	n == 3  drain the matrix, advance the circle, pass the action up to the
//	        nearest active ancestor (admin fallback when none)
func (e *Engine) processLinearPayment(st State, buyerID string, recipient *types.Member, cfg LevelConfig) error {
	visited := make(map[string]struct{})
	current := recipient
	for steps := 0; steps < passUpLimit; steps++ {
		if _, seen := visited[current.ID]; seen {
			return fmt.Errorf("%w: %s", ErrBrokenChain, current.ID)
		}
		visited[current.ID] = struct{}{}

		lvl := current.LevelState(ProgramLinear, cfg.Level)
		if lvl == nil {
			return fmt.Errorf("member %s has no %s level %d: %w", current.ID, ProgramLinear, cfg.Level, ErrConfigMissing)
		}
		lvl.Boxes = append(lvl.Boxes, buyerID)
		n := len(lvl.Boxes)

		if n <= 2 {
			current.Credit(cfg.Cost)
			if err := st.PutMember(current); err != nil {
				return fmt.Errorf("pay %s matrix owner %s: %w", ProgramLinear, current.ID, err)
			}
			st.AppendEvent(events.NewPayoutCredited(current.ID, buyerID, ProgramLinear, cfg.Level, n, cfg.Cost))
			return nil
		}

		// Matrix full. Resolve the next recipient before draining, then
		// forward the same buyer action into the ancestor's matrix.
		next, err := e.findEligibleUpline(st, current, ProgramLinear, cfg.Level)
		if err != nil {
			return err
		}
		recycleLevel(st, current, lvl, ProgramLinear)
		if err := st.PutMember(current); err != nil {
			return fmt.Errorf("recycle %s matrix of %s: %w", ProgramLinear, current.ID, err)
		}
		if next == nil {
			reason := fmt.Sprintf("%s box %d pass-up, no eligible upline above %s", ProgramLinear, n, current.ID)
			return e.creditAdmin(st, cfg.Cost, ProgramLinear, cfg.Level, buyerID, reason)
		}
		st.AppendEvent(events.NewActionPassedUp(current.ID, next.ID, buyerID, ProgramLinear, cfg.Level, n))
		current = next
	}
	return fmt.Errorf("%w: pass-up exceeded %d steps", ErrBrokenChain, passUpLimit)
}
