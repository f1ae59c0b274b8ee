package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"nexonext/core/types"
	"nexonext/native/matrix"
)

var (
	bucketMembers = []byte("members")
	bucketEmails  = []byte("email_index")
	bucketCodes   = []byte("referral_index")
	bucketLedger  = []byte("admin_earnings")
	bucketGifts   = []byte("gift_transfers")
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicateEmail is returned when creating a member with a taken email.
	ErrDuplicateEmail = errors.New("storage: email already registered")
	// ErrDuplicateMember is returned when creating a member with a taken ID.
	ErrDuplicateMember = errors.New("storage: member id already exists")
	// ErrConflict is the retryable abort the store contract reports when
	// concurrent transactions collide. Bolt serialises writers, so callers
	// see it only through context cancellation races, but the retry contract
	// is part of the interface regardless of backend.
	ErrConflict = errors.New("storage: transaction conflict")
)

// Store is the persistence collaborator: a Bolt-backed record store offering
// atomic multi-record transactions. Writers are fully serialised, which gives
// the engine the isolation its box and balance invariants assume.
type Store struct {
	db *bolt.DB
}

// NewStore opens (and migrates) the Bolt-backed store.
func NewStore(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMembers, bucketEmails, bucketCodes, bucketLedger, bucketGifts} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TxState exposes one transaction's reads and writes to the engine. It
// implements matrix.State; everything done through it commits or rolls back
// as a unit.
type TxState struct {
	tx     *bolt.Tx
	events []types.Event
}

var _ matrix.State = (*TxState)(nil)

// Update runs fn inside one writable transaction. Any error aborts the whole
// transaction with no partial effects. On success the events collected during
// the transaction are returned for post-commit observers.
func (s *Store) Update(ctx context.Context, fn func(*TxState) error) ([]types.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var collected []types.Event
	err := s.db.Update(func(tx *bolt.Tx) error {
		st := &TxState{tx: tx}
		if err := fn(st); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		collected = st.events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collected, nil
}

// View runs fn inside one read-only transaction.
func (s *Store) View(ctx context.Context, fn func(*TxState) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&TxState{tx: tx})
	})
}

// GetMember returns the member record, reporting absence via the bool.
func (st *TxState) GetMember(id string) (*types.Member, bool, error) {
	raw := st.tx.Bucket(bucketMembers).Get([]byte(id))
	if raw == nil {
		return nil, false, nil
	}
	var member types.Member
	if err := json.Unmarshal(raw, &member); err != nil {
		return nil, false, fmt.Errorf("decode member %s: %w", id, err)
	}
	member.EnsureBalance()
	return &member, true, nil
}

// GetMemberByEmail resolves a member through the email index.
func (st *TxState) GetMemberByEmail(email string) (*types.Member, bool, error) {
	id := st.tx.Bucket(bucketEmails).Get([]byte(normalizeEmail(email)))
	if id == nil {
		return nil, false, nil
	}
	return st.GetMember(string(id))
}

// GetMemberByReferralCode resolves a member through the referral-code index.
func (st *TxState) GetMemberByReferralCode(code string) (*types.Member, bool, error) {
	id := st.tx.Bucket(bucketCodes).Get([]byte(strings.TrimSpace(code)))
	if id == nil {
		return nil, false, nil
	}
	return st.GetMember(string(id))
}

// PutMember writes the member record back and keeps the lookup indexes in
// step. Email and referral code are immutable once set.
func (st *TxState) PutMember(member *types.Member) error {
	if member == nil || member.ID == "" {
		return errors.New("storage: member id required")
	}
	member.EnsureBalance()
	encoded, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("encode member %s: %w", member.ID, err)
	}
	if err := st.tx.Bucket(bucketMembers).Put([]byte(member.ID), encoded); err != nil {
		return err
	}
	if member.Email != "" {
		if err := st.tx.Bucket(bucketEmails).Put([]byte(normalizeEmail(member.Email)), []byte(member.ID)); err != nil {
			return err
		}
	}
	if member.ReferralCode != "" {
		if err := st.tx.Bucket(bucketCodes).Put([]byte(member.ReferralCode), []byte(member.ID)); err != nil {
			return err
		}
	}
	return nil
}

// AppendLedgerEntry appends an immutable admin-earnings record.
func (st *TxState) AppendLedgerEntry(entry *types.LedgerEntry) error {
	return appendRecord(st.tx, bucketLedger, entry)
}

// AppendGift appends an immutable gift-transfer record.
func (st *TxState) AppendGift(gift *types.GiftTransfer) error {
	return appendRecord(st.tx, bucketGifts, gift)
}

// AppendEvent collects an event for post-commit observers.
func (st *TxState) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	st.events = append(st.events, *evt)
}

func appendRecord(tx *bolt.Tx, bucket []byte, record any) error {
	b := tx.Bucket(bucket)
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return b.Put(key, encoded)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateMemberParams carries the inputs for seeding a new member record. This
// is the point-write primitive the external registration surface builds on.
type CreateMemberParams struct {
	Email string
	// ReferrerCode optionally links the member under an existing referrer.
	// An unknown code leaves the member unreferred, matching the lenient
	// behavior of the registration surface.
	ReferrerCode string
	// Balance optionally seeds an opening balance.
	Balance *big.Int
}

// CreateMember inserts a new member with locked packages for every program.
func (s *Store) CreateMember(ctx context.Context, params CreateMemberParams) (*types.Member, error) {
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, errors.New("storage: email required")
	}
	member := &types.Member{
		ID:           uuid.NewString(),
		Email:        email,
		ReferralCode: strings.SplitN(uuid.NewString(), "-", 2)[0],
		Balance:      big.NewInt(0),
		Packages: map[string]types.PackageState{
			matrix.ProgramLinear: types.NewPackageState(matrix.LevelCount),
			matrix.ProgramWide:   types.NewPackageState(matrix.LevelCount),
		},
		CreatedAt: time.Now().UTC(),
	}
	if params.Balance != nil {
		member.Balance = new(big.Int).Set(params.Balance)
	}
	_, err := s.Update(ctx, func(st *TxState) error {
		if _, ok, err := st.GetMemberByEmail(email); err != nil {
			return err
		} else if ok {
			return ErrDuplicateEmail
		}
		if _, ok, err := st.GetMember(member.ID); err != nil {
			return err
		} else if ok {
			return ErrDuplicateMember
		}
		if code := strings.TrimSpace(params.ReferrerCode); code != "" {
			referrer, ok, err := st.GetMemberByReferralCode(code)
			if err != nil {
				return err
			}
			if ok {
				member.ReferredBy = referrer.ID
			}
		}
		return st.PutMember(member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Member reads one member record outside any engine transaction.
func (s *Store) Member(ctx context.Context, id string) (*types.Member, error) {
	var member *types.Member
	err := s.View(ctx, func(st *TxState) error {
		m, ok, err := st.GetMember(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// MemberByEmail reads one member record through the email index.
func (s *Store) MemberByEmail(ctx context.Context, email string) (*types.Member, error) {
	var member *types.Member
	err := s.View(ctx, func(st *TxState) error {
		m, ok, err := st.GetMemberByEmail(email)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// LedgerEntries returns the admin-earnings records in append order.
func (s *Store) LedgerEntries(ctx context.Context) ([]types.LedgerEntry, error) {
	var entries []types.LedgerEntry
	err := s.View(ctx, func(st *TxState) error {
		return st.tx.Bucket(bucketLedger).ForEach(func(_, raw []byte) error {
			var entry types.LedgerEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GiftTransfers returns the gift records in append order.
func (s *Store) GiftTransfers(ctx context.Context) ([]types.GiftTransfer, error) {
	var gifts []types.GiftTransfer
	err := s.View(ctx, func(st *TxState) error {
		return st.tx.Bucket(bucketGifts).ForEach(func(_, raw []byte) error {
			var gift types.GiftTransfer
			if err := json.Unmarshal(raw, &gift); err != nil {
				return err
			}
			gifts = append(gifts, gift)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return gifts, nil
}
