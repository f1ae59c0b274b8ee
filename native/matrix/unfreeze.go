package matrix

import (
	"fmt"

	"nexonext/core/events"
	"nexonext/core/types"
)

// UnfreezeLevel reactivates a frozen level after payment of the unfreeze fee.
// The matrix state is reset and the fee is routed as a flat transfer to the
// nearest active upline, or to the admin ledger when none exists. The fee
// never fills a box.
func (e *Engine) UnfreezeLevel(st State, memberID, program string, level int) (string, error) {
	if st == nil {
		return "", ErrNilState
	}
	cfg, err := e.levelConfig(program, level)
	if err != nil {
		return "", err
	}
	if cfg.UnfreezeCost == nil {
		return "", fmt.Errorf("level %d of %s has no unfreeze cost: %w", level, program, ErrConfigMissing)
	}

	member, ok, err := st.GetMember(memberID)
	if err != nil {
		return "", fmt.Errorf("load member %s: %w", memberID, err)
	}
	if !ok {
		return "", fmt.Errorf("member %s: %w", memberID, ErrMemberNotFound)
	}

	lvl := member.LevelState(program, level)
	if lvl == nil {
		return "", fmt.Errorf("member %s has no %s package: %w", memberID, program, ErrConfigMissing)
	}
	if lvl.Status != types.LevelFrozen {
		return "", fmt.Errorf("%w: level %d is %s", ErrLevelNotFrozen, level, lvl.Status)
	}
	member.EnsureBalance()
	if member.Balance.Cmp(cfg.UnfreezeCost) < 0 {
		return "", fmt.Errorf("%w: need %s", ErrInsufficientFunds, cfg.UnfreezeCost)
	}

	member.Debit(cfg.UnfreezeCost)
	lvl.Status = types.LevelActive
	lvl.Boxes = []string{}
	lvl.CurrentCircle = 0
	if err := st.PutMember(member); err != nil {
		return "", fmt.Errorf("unfreeze level for %s: %w", memberID, err)
	}
	st.AppendEvent(events.NewLevelUnfrozen(memberID, program, level, cfg.UnfreezeCost))

	recipient, err := e.findEligibleUpline(st, member, program, level)
	if err != nil {
		return "", err
	}
	if recipient == nil {
		reason := fmt.Sprintf("unfreeze fee, no eligible upline above %s", memberID)
		if err := e.creditAdmin(st, cfg.UnfreezeCost, program, level, memberID, reason); err != nil {
			return "", err
		}
		return fmt.Sprintf("Level %d of %s has been unfrozen successfully! No eligible upline found, fee sent to admin.", level, program), nil
	}
	recipient.Credit(cfg.UnfreezeCost)
	if err := st.PutMember(recipient); err != nil {
		return "", fmt.Errorf("route unfreeze fee to %s: %w", recipient.ID, err)
	}
	st.AppendEvent(events.NewPayoutCredited(recipient.ID, memberID, program, level, 0, cfg.UnfreezeCost))
	return fmt.Sprintf("Level %d of %s has been unfrozen successfully!", level, program), nil
}
