package auth

import (
	"sync"
	"time"

	"fan-quiz-service/internal/domain"
)

// stateFeed fans authentication state out to subscribers.
type stateFeed struct {
	mu          sync.Mutex
	current     *domain.User
	subscribers map[chan StateChange]struct{}
}

func newStateFeed() *stateFeed {
	return &stateFeed{subscribers: make(map[chan StateChange]struct{})}
}

func (f *stateFeed) subscribe(now time.Time) (<-chan StateChange, func()) {
	ch := make(chan StateChange, 4)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	ch <- StateChange{User: copyUser(f.current), At: now}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *stateFeed) publish(user *domain.User, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = copyUser(user)
	for ch := range f.subscribers {
		change := StateChange{User: copyUser(user), At: now}
		select {
		case ch <- change:
		default:
			// slow subscriber: drop its oldest pending change, it only needs the latest
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}

func copyUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	u := *user
	return &u
}
