package types

import (
	"math/big"
	"time"
)

// LedgerEntry is an immutable admin-earnings record. Entries are appended when
// a payout cannot be routed to any eligible member and the funds fall through
// to the system account.
type LedgerEntry struct {
	ID         string    `json:"id"`
	Amount     *big.Int  `json:"amount"`
	Program    string    `json:"program"`
	Level      int       `json:"level"`
	FromMember string    `json:"fromMember"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// GiftTransfer records a flat member-to-member balance transfer. It carries no
// matrix side effects.
type GiftTransfer struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    *big.Int  `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
