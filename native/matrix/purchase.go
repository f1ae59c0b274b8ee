package matrix

import (
	"fmt"

	"nexonext/core/events"
	"nexonext/core/types"
)

// PurchaseLevel validates and executes a level purchase for the buyer inside
// the caller's transaction: the buyer is debited, the level activated, and the
// cost routed through the program's matrix starting at the effective referrer.
// The returned message is presentation text only; callers must not parse it.
func (e *Engine) PurchaseLevel(st State, buyerID, program string, level int) (string, error) {
	if st == nil {
		return "", ErrNilState
	}
	cfg, err := e.levelConfig(program, level)
	if err != nil {
		return "", err
	}

	buyer, ok, err := st.GetMember(buyerID)
	if err != nil {
		return "", fmt.Errorf("load buyer %s: %w", buyerID, err)
	}
	if !ok {
		return "", fmt.Errorf("buyer %s: %w", buyerID, ErrMemberNotFound)
	}

	lvl := buyer.LevelState(program, level)
	if lvl == nil {
		return "", fmt.Errorf("buyer %s has no %s package: %w", buyerID, program, ErrConfigMissing)
	}
	if lvl.Status != types.LevelLocked {
		return "", fmt.Errorf("%w: level %d is already %s", ErrLevelNotLocked, level, lvl.Status)
	}
	if level > 1 {
		prev := buyer.LevelState(program, level-1)
		if prev == nil || prev.Status == types.LevelLocked {
			return "", fmt.Errorf("%w: purchase level %d before level %d", ErrLevelOutOfOrder, level-1, level)
		}
	}
	buyer.EnsureBalance()
	if buyer.Balance.Cmp(cfg.Cost) < 0 {
		return "", fmt.Errorf("%w: need %s", ErrInsufficientFunds, cfg.Cost)
	}

	buyer.Debit(cfg.Cost)
	lvl.Status = types.LevelActive
	if err := st.PutMember(buyer); err != nil {
		return "", fmt.Errorf("activate level for %s: %w", buyerID, err)
	}
	st.AppendEvent(events.NewLevelPurchased(buyerID, program, level, cfg.Cost))
	msg := fmt.Sprintf("Level %d of %s purchased successfully!", level, program)

	if buyer.ReferredBy == "" {
		if err := e.creditAdmin(st, cfg.Cost, program, level, buyerID, "buyer has no referrer"); err != nil {
			return "", err
		}
		return msg + " No referrer found, funds sent to admin.", nil
	}

	direct, ok, err := st.GetMember(buyer.ReferredBy)
	if err != nil {
		return "", fmt.Errorf("load referrer of %s: %w", buyerID, err)
	}
	if !ok {
		if err := e.creditAdmin(st, cfg.Cost, program, level, buyerID, "referrer reference set but record missing"); err != nil {
			return "", err
		}
		return msg + " Referrer not found, funds sent to admin.", nil
	}

	// The direct referrer is accepted whenever its level is not locked, even
	// frozen. Only a locked direct referrer hands routing to the stricter
	// active-only upline walk.
	var effective *types.Member
	if dlvl := direct.LevelState(program, level); dlvl != nil && dlvl.Status != types.LevelLocked {
		effective = direct
	} else {
		effective, err = e.findEligibleUpline(st, direct, program, level)
		if err != nil {
			return "", err
		}
		msg += " Your direct referrer does not own this level, commission passed up."
	}
	if effective == nil {
		if err := e.creditAdmin(st, cfg.Cost, program, level, buyerID, "no eligible upline found in chain"); err != nil {
			return "", err
		}
		return msg + " No eligible upline found, funds sent to admin.", nil
	}

	switch program {
	case ProgramLinear:
		err = e.processLinearPayment(st, buyerID, effective, cfg)
	case ProgramWide:
		err = e.processWidePayment(st, buyerID, effective, cfg)
	default:
		err = ErrUnknownProgram
	}
	if err != nil {
		return "", err
	}
	return msg, nil
}
