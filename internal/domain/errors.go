package domain

import "errors"

var (
	// ErrEmptyBank is returned when a quiz session is built from a bank with no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrInvalidQuestion indicates a bank entry whose answer index is out of range.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrSessionNotFound is returned when a quiz session does not exist or belongs to someone else.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotAuthenticated gates quiz access on a signed-in user.
	ErrNotAuthenticated = errors.New("sign in required")
	// ErrBankNotFound indicates the configured question bank could not be located.
	ErrBankNotFound = errors.New("question bank not found")
)
