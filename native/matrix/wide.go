package matrix

import (
	"fmt"

	"nexonext/core/events"
	"nexonext/core/types"
)

// processWidePayment runs the 6-slot matrix for one buyer action. As with the
// linear matrix the recursive pass-up is expressed as a loop, but the wide
// matrix recycles on the way back down: a node whose sixth box triggered a
// pass-up drains its own matrix only after the forwarded action has settled
// further up the chain, matching the unwind order of the recursive source
// behavior.
//
// Slot semantics, keyed on the 1-indexed box position after the append:
//
//	n in {1, 6}  pass-up action slot: forward the buyer action into the
//	             nearest active ancestor's matrix, no payout here
//	n == 2       hybrid slot: pay the matrix owner and seed the buyer's own
//	             matrix with one self-referential box
//	n in {3..5}  direct payment slots to the matrix owner
//
// After the slot action, n >= 6 drains this node's boxes and advances its
// circle, independent of the pass-up that already fired for slot 6.
func (e *Engine) processWidePayment(st State, buyerID string, recipient *types.Member, cfg LevelConfig) error {
	visited := make(map[string]struct{})
	var pending []string
	current := recipient

	for steps := 0; ; steps++ {
		if steps >= passUpLimit {
			return fmt.Errorf("%w: pass-up exceeded %d steps", ErrBrokenChain, passUpLimit)
		}
		if _, seen := visited[current.ID]; seen {
			return fmt.Errorf("%w: %s", ErrBrokenChain, current.ID)
		}
		visited[current.ID] = struct{}{}

		lvl := current.LevelState(ProgramWide, cfg.Level)
		if lvl == nil {
			return fmt.Errorf("member %s has no %s level %d: %w", current.ID, ProgramWide, cfg.Level, ErrConfigMissing)
		}
		lvl.Boxes = append(lvl.Boxes, buyerID)
		n := len(lvl.Boxes)

		switch {
		case n == 1 || n == 6:
			if err := st.PutMember(current); err != nil {
				return fmt.Errorf("record %s box for %s: %w", ProgramWide, current.ID, err)
			}
			if n >= matrixCapacity(ProgramWide) {
				pending = append(pending, current.ID)
			}
			next, err := e.findEligibleUpline(st, current, ProgramWide, cfg.Level)
			if err != nil {
				return err
			}
			if next == nil {
				reason := fmt.Sprintf("%s box %d, no eligible upline above %s", ProgramWide, n, current.ID)
				if err := e.creditAdmin(st, cfg.Cost, ProgramWide, cfg.Level, buyerID, reason); err != nil {
					return err
				}
				return e.drainPending(st, pending, cfg.Level)
			}
			st.AppendEvent(events.NewActionPassedUp(current.ID, next.ID, buyerID, ProgramWide, cfg.Level, n))
			current = next
			continue

		case n == 2:
			// Hybrid slot: the owner is paid and the buyer's own matrix is
			// seeded with one box holding the buyer itself.
			current.Credit(cfg.Cost)
			if err := st.PutMember(current); err != nil {
				return fmt.Errorf("pay %s matrix owner %s: %w", ProgramWide, current.ID, err)
			}
			st.AppendEvent(events.NewPayoutCredited(current.ID, buyerID, ProgramWide, cfg.Level, n, cfg.Cost))
			if err := e.seedBuyerBox(st, buyerID, cfg.Level); err != nil {
				return err
			}
			return e.drainPending(st, pending, cfg.Level)

		default: // n in {3, 4, 5}
			current.Credit(cfg.Cost)
			if err := st.PutMember(current); err != nil {
				return fmt.Errorf("pay %s matrix owner %s: %w", ProgramWide, current.ID, err)
			}
			st.AppendEvent(events.NewPayoutCredited(current.ID, buyerID, ProgramWide, cfg.Level, n, cfg.Cost))
			return e.drainPending(st, pending, cfg.Level)
		}
	}
}

// seedBuyerBox pushes the buyer into its own box sequence for the level. This
// is a raw append: it carries no payout and never forwards the action.
func (e *Engine) seedBuyerBox(st State, buyerID string, level int) error {
	buyer, ok, err := st.GetMember(buyerID)
	if err != nil {
		return fmt.Errorf("seed buyer box: %w", err)
	}
	if !ok {
		return fmt.Errorf("seed buyer box %s: %w", buyerID, ErrMemberNotFound)
	}
	lvl := buyer.LevelState(ProgramWide, level)
	if lvl == nil {
		return fmt.Errorf("buyer %s has no %s level %d: %w", buyerID, ProgramWide, level, ErrConfigMissing)
	}
	lvl.Boxes = append(lvl.Boxes, buyerID)
	if err := st.PutMember(buyer); err != nil {
		return fmt.Errorf("seed buyer box: %w", err)
	}
	st.AppendEvent(events.NewBoxSelfSeeded(buyerID, ProgramWide, level))
	return nil
}

// drainPending recycles the matrices filled to capacity on the way up, most
// recently visited first, mirroring the unwind of the recursive formulation.
// Owners are re-read so the recycle lands on the freshest record state.
func (e *Engine) drainPending(st State, pending []string, level int) error {
	for i := len(pending) - 1; i >= 0; i-- {
		owner, ok, err := st.GetMember(pending[i])
		if err != nil {
			return fmt.Errorf("recycle %s matrix of %s: %w", ProgramWide, pending[i], err)
		}
		if !ok {
			return fmt.Errorf("recycle %s matrix of %s: %w", ProgramWide, pending[i], ErrMemberNotFound)
		}
		lvl := owner.LevelState(ProgramWide, level)
		if lvl == nil {
			return fmt.Errorf("member %s has no %s level %d: %w", owner.ID, ProgramWide, level, ErrConfigMissing)
		}
		recycleLevel(st, owner, lvl, ProgramWide)
		if err := st.PutMember(owner); err != nil {
			return fmt.Errorf("recycle %s matrix of %s: %w", ProgramWide, owner.ID, err)
		}
	}
	return nil
}
