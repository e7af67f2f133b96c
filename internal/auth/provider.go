// Package auth models the identity provider the quiz is gated behind.
//
// The quiz core never calls into this package; the composition layer asks a
// Manager for the current user and refuses to start a session without one.
package auth

import (
	"context"
	"errors"
	"time"

	"fan-quiz-service/internal/domain"
)

var (
	// ErrReauthenticationRequired means the operation needs a recent sign-in.
	ErrReauthenticationRequired = errors.New("recent sign-in required")
	// ErrSignInCancelled is returned when the user declines the sign-in prompt.
	ErrSignInCancelled = errors.New("sign-in cancelled")
	// ErrNotSignedIn is returned for account operations without a current user.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrInvalidState rejects OAuth callbacks whose state was never issued or has expired.
	ErrInvalidState = errors.New("unknown or expired oauth state")
	// ErrNonceMismatch rejects ID tokens not bound to the nonce sent with the request.
	ErrNonceMismatch = errors.New("id token nonce mismatch")
)

// StateChange is pushed whenever the signed-in user changes. User is nil after sign-out.
type StateChange struct {
	User *domain.User
	At   time.Time
}

// Provider is the capability interface of an identity provider.
type Provider interface {
	CurrentUser() *domain.User
	SignIn(ctx context.Context) (domain.User, error)
	SignOut(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	// Subscribe delivers the current state immediately, then every change.
	// The caller must invoke cancel to release the subscription.
	Subscribe() (<-chan StateChange, func())
}
