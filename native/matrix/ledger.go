package matrix

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"nexonext/core/events"
	"nexonext/core/types"
)

func newEntryID() string {
	return uuid.NewString()
}

// creditAdmin appends an admin-earnings record inside the caller's active
// transaction. No member balance changes; this is strictly the accounting
// fallback for money the engine could not route.
func (e *Engine) creditAdmin(st State, amount *big.Int, program string, level int, fromMember, reason string) error {
	entry := &types.LedgerEntry{
		ID:         e.newID(),
		Amount:     cloneAmount(amount),
		Program:    program,
		Level:      level,
		FromMember: fromMember,
		Reason:     reason,
		Timestamp:  e.now(),
	}
	if err := st.AppendLedgerEntry(entry); err != nil {
		return fmt.Errorf("credit admin: %w", err)
	}
	st.AppendEvent(events.NewAdminCredited(entry))
	return nil
}
