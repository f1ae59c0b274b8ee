package matrix

import (
	"fmt"
	"math/big"
	"strings"

	"nexonext/core/events"
	"nexonext/core/types"
)

// SendGift moves a flat amount from the sender to the member owning the given
// email address, recording an immutable gift transfer. Gifts carry no matrix
// side effects.
func (e *Engine) SendGift(st State, senderID, recipientEmail string, amount *big.Int) (string, error) {
	if st == nil {
		return "", ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	recipientEmail = strings.TrimSpace(recipientEmail)

	sender, ok, err := st.GetMember(senderID)
	if err != nil {
		return "", fmt.Errorf("load sender %s: %w", senderID, err)
	}
	if !ok {
		return "", fmt.Errorf("sender %s: %w", senderID, ErrMemberNotFound)
	}
	recipient, ok, err := st.GetMemberByEmail(recipientEmail)
	if err != nil {
		return "", fmt.Errorf("resolve gift recipient: %w", err)
	}
	if !ok {
		return "", ErrRecipientNotFound
	}
	if sender.ID == recipient.ID {
		return "", ErrSelfGift
	}
	sender.EnsureBalance()
	if sender.Balance.Cmp(amount) < 0 {
		return "", fmt.Errorf("%w: need %s", ErrInsufficientFunds, amount)
	}

	sender.Debit(amount)
	recipient.Credit(amount)
	if err := st.PutMember(sender); err != nil {
		return "", fmt.Errorf("debit gift sender %s: %w", senderID, err)
	}
	if err := st.PutMember(recipient); err != nil {
		return "", fmt.Errorf("credit gift recipient %s: %w", recipient.ID, err)
	}
	gift := &types.GiftTransfer{
		ID:        e.newID(),
		Sender:    sender.ID,
		Recipient: recipient.ID,
		Amount:    cloneAmount(amount),
		Timestamp: e.now(),
	}
	if err := st.AppendGift(gift); err != nil {
		return "", fmt.Errorf("record gift: %w", err)
	}
	st.AppendEvent(events.NewGiftSent(gift))
	return fmt.Sprintf("Successfully sent %s to %s.", amount, recipientEmail), nil
}
