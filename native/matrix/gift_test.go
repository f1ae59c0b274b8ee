package matrix

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nexonext/core/events"
)

func TestSendGiftTransfersBalance(t *testing.T) {
	st := newMockState()
	st.addMember("alice", "", 100)
	st.addMember("bob", "", 3)

	e := newTestEngine()
	msg, err := e.SendGift(st, "alice", "bob@example.com", big.NewInt(40))
	require.NoError(t, err)
	require.Contains(t, msg, "bob@example.com")

	require.Equal(t, int64(60), st.balance("alice").Int64())
	require.Equal(t, int64(43), st.balance("bob").Int64())
	require.Len(t, st.gifts, 1)
	require.Equal(t, "alice", st.gifts[0].Sender)
	require.Equal(t, "bob", st.gifts[0].Recipient)
	require.Equal(t, int64(40), st.gifts[0].Amount.Int64())
	require.Contains(t, st.eventTypes(), events.TypeGiftSent)
}

func TestSendGiftValidation(t *testing.T) {
	e := newTestEngine()

	t.Run("non-positive amount", func(t *testing.T) {
		st := newMockState()
		st.addMember("alice", "", 100)
		_, err := e.SendGift(st, "alice", "bob@example.com", big.NewInt(0))
		require.ErrorIs(t, err, ErrInvalidAmount)
		_, err = e.SendGift(st, "alice", "bob@example.com", nil)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("recipient missing", func(t *testing.T) {
		st := newMockState()
		st.addMember("alice", "", 100)
		_, err := e.SendGift(st, "alice", "nobody@example.com", big.NewInt(10))
		require.ErrorIs(t, err, ErrRecipientNotFound)
	})

	t.Run("self gift", func(t *testing.T) {
		st := newMockState()
		st.addMember("alice", "", 100)
		_, err := e.SendGift(st, "alice", "alice@example.com", big.NewInt(10))
		require.ErrorIs(t, err, ErrSelfGift)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		st := newMockState()
		st.addMember("alice", "", 5)
		st.addMember("bob", "", 0)
		_, err := e.SendGift(st, "alice", "bob@example.com", big.NewInt(10))
		require.ErrorIs(t, err, ErrInsufficientFunds)
		require.Equal(t, int64(5), st.balance("alice").Int64())
		require.Equal(t, int64(0), st.balance("bob").Int64())
	})
}
