package matrix

import "errors"

var (
	ErrNilState          = errors.New("matrix: state not configured")
	ErrUnknownProgram    = errors.New("matrix: unknown program")
	ErrUnknownLevel      = errors.New("matrix: level out of range")
	ErrConfigMissing     = errors.New("matrix: program configuration missing")
	ErrMemberNotFound    = errors.New("matrix: member not found")
	ErrLevelNotLocked    = errors.New("matrix: level already purchased")
	ErrLevelOutOfOrder   = errors.New("matrix: previous level not purchased")
	ErrLevelNotFrozen    = errors.New("matrix: level is not frozen")
	ErrInsufficientFunds = errors.New("matrix: insufficient balance")
	ErrBrokenChain       = errors.New("matrix: referral chain revisits a member")
	ErrInvalidAmount     = errors.New("matrix: amount must be positive")
	ErrSelfGift          = errors.New("matrix: cannot send a gift to yourself")
	ErrRecipientNotFound = errors.New("matrix: gift recipient not found")
)
