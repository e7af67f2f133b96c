package auth

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"fan-quiz-service/internal/domain"
)

// Manager is the composition-layer view of authentication. It turns provider
// errors into user-visible messages and owns the account deletion policy.
type Manager struct {
	provider Provider
	logger   zerolog.Logger

	mu           sync.Mutex
	errorMessage string
	listeners    []func(*domain.User)

	cancel func()
	done   chan struct{}
}

func NewManager(provider Provider, logger zerolog.Logger) *Manager {
	ch, cancel := provider.Subscribe()
	m := &Manager{
		provider: provider,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go m.listen(ch)
	return m
}

func (m *Manager) listen(ch <-chan StateChange) {
	defer close(m.done)
	for change := range ch {
		if change.User != nil {
			m.logger.Debug().Str("user_id", change.User.ID).Msg("auth state: signed in")
		} else {
			m.logger.Debug().Msg("auth state: signed out")
		}

		m.mu.Lock()
		listeners := slices.Clone(m.listeners)
		m.mu.Unlock()

		for _, fn := range listeners {
			fn(change.User)
		}
	}
}

// OnChange registers fn for every authentication state change.
func (m *Manager) OnChange(fn func(*domain.User)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) User() *domain.User {
	return m.provider.CurrentUser()
}

func (m *Manager) IsAuthenticated() bool {
	return m.provider.CurrentUser() != nil
}

// RequireUser returns the signed-in user or domain.ErrNotAuthenticated.
func (m *Manager) RequireUser() (domain.User, error) {
	user := m.provider.CurrentUser()
	if user == nil {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return *user, nil
}

func (m *Manager) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorMessage
}

func (m *Manager) ClearError() {
	m.setError("")
}

func (m *Manager) SignIn(ctx context.Context) (domain.User, error) {
	user, err := m.provider.SignIn(ctx)
	switch {
	case errors.Is(err, ErrSignInCancelled):
		m.setError("Sign in was cancelled.")
		return domain.User{}, err
	case err != nil:
		m.logger.Warn().Err(err).Msg("sign-in failed")
		m.setError("Sign in failed: " + err.Error())
		return domain.User{}, err
	}
	m.setError("")
	return user, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("sign-out failed")
		m.setError("Failed to sign out: " + err.Error())
		return err
	}
	m.setError("")
	return nil
}

// DeleteAccount deletes the signed-in account. When the provider demands a
// recent sign-in, the user is signed in again and deletion is retried once.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	err := m.provider.DeleteAccount(ctx)
	if errors.Is(err, ErrReauthenticationRequired) {
		m.logger.Info().Msg("account deletion needs a fresh sign-in")
		if _, err = m.provider.SignIn(ctx); err == nil {
			err = m.provider.DeleteAccount(ctx)
		}
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("account deletion failed")
		m.setError("Failed to delete account: " + err.Error())
		return err
	}
	m.setError("")
	return nil
}

// Close stops listening to the provider and waits for pending callbacks.
func (m *Manager) Close() {
	m.cancel()
	<-m.done
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.errorMessage = msg
	m.mu.Unlock()
}
