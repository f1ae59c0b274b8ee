package events

import (
	"math/big"
	"strconv"

	"nexonext/core/types"
)

const (
	// TypeLevelPurchased is emitted when a buyer activates a locked level.
	TypeLevelPurchased = "matrix.level.purchased"
	// TypePayoutCredited is emitted when a matrix slot pays its owner.
	TypePayoutCredited = "matrix.payout.credited"
	// TypeActionPassedUp is emitted when a buyer's action is forwarded from a
	// full or pass-up slot into an ancestor's matrix.
	TypeActionPassedUp = "matrix.action.passed_up"
	// TypeMatrixRecycled is emitted when a full matrix drains its boxes and
	// advances its circle counter.
	TypeMatrixRecycled = "matrix.recycled"
	// TypeMatrixFrozen is emitted when a second recycle freezes the level.
	TypeMatrixFrozen = "matrix.frozen"
	// TypeBoxSelfSeeded is emitted when the wide-matrix hybrid slot seeds the
	// buyer's own matrix with one box.
	TypeBoxSelfSeeded = "matrix.box.self_seeded"
	// TypeAdminCredited is emitted when funds fall through to the admin ledger.
	TypeAdminCredited = "ledger.admin.credited"
	// TypeLevelUnfrozen is emitted when a frozen level is reactivated.
	TypeLevelUnfrozen = "matrix.level.unfrozen"
	// TypeGiftSent is emitted for a flat member-to-member transfer.
	TypeGiftSent = "gift.sent"
)

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func levelAttributes(program string, level int, extra map[string]string) map[string]string {
	attrs := map[string]string{
		"program": program,
		"level":   strconv.Itoa(level),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return attrs
}

// NewLevelPurchased returns the canonical event payload for a level purchase.
func NewLevelPurchased(buyer, program string, level int, cost *big.Int) *types.Event {
	return &types.Event{Type: TypeLevelPurchased, Attributes: levelAttributes(program, level, map[string]string{
		"buyer": buyer,
		"cost":  amountString(cost),
	})}
}

// NewPayoutCredited returns the canonical event payload for a direct slot
// payout to a matrix owner.
func NewPayoutCredited(recipient, buyer, program string, level, slot int, amount *big.Int) *types.Event {
	return &types.Event{Type: TypePayoutCredited, Attributes: levelAttributes(program, level, map[string]string{
		"recipient": recipient,
		"buyer":     buyer,
		"slot":      strconv.Itoa(slot),
		"amount":    amountString(amount),
	})}
}

// NewActionPassedUp returns the canonical event payload for a pass-up from one
// matrix into an ancestor's matrix.
func NewActionPassedUp(from, to, buyer, program string, level, slot int) *types.Event {
	return &types.Event{Type: TypeActionPassedUp, Attributes: levelAttributes(program, level, map[string]string{
		"from":  from,
		"to":    to,
		"buyer": buyer,
		"slot":  strconv.Itoa(slot),
	})}
}

// NewMatrixRecycled returns the canonical event payload for a matrix recycle.
// Circle carries the post-increment counter value.
func NewMatrixRecycled(owner, program string, level int, circle uint64) *types.Event {
	return &types.Event{Type: TypeMatrixRecycled, Attributes: levelAttributes(program, level, map[string]string{
		"owner":  owner,
		"circle": strconv.FormatUint(circle, 10),
	})}
}

// NewMatrixFrozen returns the canonical event payload emitted when a recycle
// freezes the level.
func NewMatrixFrozen(owner, program string, level int, circle uint64) *types.Event {
	return &types.Event{Type: TypeMatrixFrozen, Attributes: levelAttributes(program, level, map[string]string{
		"owner":  owner,
		"circle": strconv.FormatUint(circle, 10),
	})}
}

// NewBoxSelfSeeded returns the canonical event payload for the hybrid slot's
// self-referential box push.
func NewBoxSelfSeeded(buyer, program string, level int) *types.Event {
	return &types.Event{Type: TypeBoxSelfSeeded, Attributes: levelAttributes(program, level, map[string]string{
		"buyer": buyer,
	})}
}

// NewAdminCredited returns the canonical event payload for an admin-ledger
// fallback credit.
func NewAdminCredited(entry *types.LedgerEntry) *types.Event {
	if entry == nil {
		return &types.Event{Type: TypeAdminCredited, Attributes: map[string]string{}}
	}
	return &types.Event{Type: TypeAdminCredited, Attributes: levelAttributes(entry.Program, entry.Level, map[string]string{
		"entry":      entry.ID,
		"amount":     amountString(entry.Amount),
		"fromMember": entry.FromMember,
		"reason":     entry.Reason,
	})}
}

// NewLevelUnfrozen returns the canonical event payload for a level unfreeze.
func NewLevelUnfrozen(member, program string, level int, fee *big.Int) *types.Event {
	return &types.Event{Type: TypeLevelUnfrozen, Attributes: levelAttributes(program, level, map[string]string{
		"member": member,
		"fee":    amountString(fee),
	})}
}

// NewGiftSent returns the canonical event payload for a gift transfer.
func NewGiftSent(gift *types.GiftTransfer) *types.Event {
	if gift == nil {
		return &types.Event{Type: TypeGiftSent, Attributes: map[string]string{}}
	}
	return &types.Event{Type: TypeGiftSent, Attributes: map[string]string{
		"gift":      gift.ID,
		"sender":    gift.Sender,
		"recipient": gift.Recipient,
		"amount":    amountString(gift.Amount),
	}}
}
