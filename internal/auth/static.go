package auth

import (
	"context"
	"sync"
	"time"

	"fan-quiz-service/internal/domain"
)

// StaticProvider signs in a fixed, configured user without any network.
// It backs local development and tests.
type StaticProvider struct {
	user        domain.User
	recentLogin time.Duration
	now         func() time.Time
	feed        *stateFeed

	mu         sync.Mutex
	signedIn   bool
	signedInAt time.Time
}

var _ Provider = (*StaticProvider)(nil)

// StaticOption configures a StaticProvider.
type StaticOption func(*StaticProvider)

// WithStaticClock is test-only for deterministic sign-in ages.
func WithStaticClock(now func() time.Time) StaticOption {
	return func(p *StaticProvider) { p.now = now }
}

// NewStaticProvider returns a signed-out provider for user. Account deletion
// requires a sign-in no older than recentLogin; zero disables the check.
func NewStaticProvider(user domain.User, recentLogin time.Duration, opts ...StaticOption) *StaticProvider {
	p := &StaticProvider{
		user:        user,
		recentLogin: recentLogin,
		now:         time.Now,
		feed:        newStateFeed(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StaticProvider) CurrentUser() *domain.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.signedIn {
		return nil
	}
	u := p.user
	return &u
}

func (p *StaticProvider) SignIn(ctx context.Context) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, ErrSignInCancelled
	}
	now := p.now()
	p.mu.Lock()
	p.signedIn = true
	p.signedInAt = now
	user := p.user
	p.mu.Unlock()

	p.feed.publish(&user, now)
	return user, nil
}

func (p *StaticProvider) SignOut(context.Context) error {
	p.mu.Lock()
	wasSignedIn := p.signedIn
	p.signedIn = false
	p.mu.Unlock()

	if wasSignedIn {
		p.feed.publish(nil, p.now())
	}
	return nil
}

func (p *StaticProvider) DeleteAccount(context.Context) error {
	now := p.now()
	p.mu.Lock()
	if !p.signedIn {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	if p.recentLogin > 0 && now.Sub(p.signedInAt) > p.recentLogin {
		p.mu.Unlock()
		return ErrReauthenticationRequired
	}
	p.signedIn = false
	p.mu.Unlock()

	p.feed.publish(nil, now)
	return nil
}

func (p *StaticProvider) Subscribe() (<-chan StateChange, func()) {
	return p.feed.subscribe(p.now())
}
