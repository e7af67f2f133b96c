package app

import (
	"context"
	"sync"
	"time"

	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/quiz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// BankRepository loads the question bank sessions are built from.
type BankRepository interface {
	GetBank(ctx context.Context) ([]domain.Question, error)
}

// Recorder observes session lifecycle events.
type Recorder interface {
	SessionStarted()
	AnswerSubmitted(correct bool)
	SessionCompleted(tier string)
	SessionEnded()
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()         {}
func (nopRecorder) AnswerSubmitted(bool)    {}
func (nopRecorder) SessionCompleted(string) {}
func (nopRecorder) SessionEnded()           {}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *QuizService) { s.logger = logger }
}

func WithRecorder(r Recorder) ServiceOption {
	return func(s *QuizService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSessionOptions forwards options to every quiz.Session the service creates.
func WithSessionOptions(opts ...quiz.Option) ServiceOption {
	return func(s *QuizService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

// QuizService gates quiz play on a signed-in user and routes input to
// the user's live sessions.
type QuizService struct {
	sessions    SessionRepository
	bank        BankRepository
	recorder    Recorder
	logger      zerolog.Logger
	sessionOpts []quiz.Option
	now         func() time.Time
}

func NewQuizService(store SessionRepository, bank BankRepository, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions: store,
		bank:     bank,
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a fresh session for user. A nil user is not signed in.
func (s *QuizService) Start(ctx context.Context, user *domain.User) (string, quiz.View, error) {
	if user == nil {
		return "", quiz.View{}, domain.ErrNotAuthenticated
	}
	bank, err := s.bank.GetBank(ctx)
	if err != nil {
		return "", quiz.View{}, err
	}
	core, err := quiz.NewSession(bank, s.sessionOpts...)
	if err != nil {
		return "", quiz.View{}, err
	}

	session := &Session{
		id:        uuid.NewString(),
		ownerID:   user.ID,
		createdAt: s.now(),
		quiz:      core,
	}
	s.sessions.Put(session)
	s.recorder.SessionStarted()
	s.logger.Info().Str("session_id", session.id).Str("user_id", user.ID).Int("questions", core.TotalQuestions()).Msg("quiz session started")
	return session.id, core.Snapshot(), nil
}

// Select picks an option of the current question.
func (s *QuizService) Select(_ context.Context, id, userID string, option int) (quiz.View, error) {
	return s.apply(id, userID, func(q *quiz.Session) { q.SelectOption(option) })
}

// Submit locks the selected answer.
func (s *QuizService) Submit(_ context.Context, id, userID string) (quiz.View, error) {
	return s.apply(id, userID, (*quiz.Session).SubmitAnswer)
}

// Advance moves to the next question or to the results.
func (s *QuizService) Advance(_ context.Context, id, userID string) (quiz.View, error) {
	return s.apply(id, userID, (*quiz.Session).Advance)
}

// Restart reshuffles and resets the session.
func (s *QuizService) Restart(_ context.Context, id, userID string) (quiz.View, error) {
	return s.apply(id, userID, (*quiz.Session).Restart)
}

// View returns the current projection without changing anything.
func (s *QuizService) View(_ context.Context, id, userID string) (quiz.View, error) {
	return s.apply(id, userID, func(*quiz.Session) {})
}

// Abandon discards the session. Nothing about it is kept.
func (s *QuizService) Abandon(_ context.Context, id, userID string) {
	session, ok := s.lookup(id, userID)
	if !ok {
		return
	}
	s.sessions.Delete(id)
	s.recorder.SessionEnded()
	s.logger.Info().Str("session_id", id).Dur("age", s.now().Sub(session.createdAt)).Msg("quiz session discarded")
}

func (s *QuizService) lookup(id, userID string) (*Session, bool) {
	session, ok := s.sessions.Get(id)
	if !ok || session.ownerID != userID {
		return nil, false
	}
	return session, true
}

func (s *QuizService) apply(id, userID string, op func(*quiz.Session)) (quiz.View, error) {
	session, ok := s.lookup(id, userID)
	if !ok {
		return quiz.View{}, domain.ErrSessionNotFound
	}
	return session.apply(op, s.recorder, s.logger), nil
}

// Session pairs one quiz attempt with its owner. The quiz core is not
// safe for concurrent use, so every access goes through mu.
type Session struct {
	id        string
	ownerID   string
	createdAt time.Time

	mu   sync.Mutex
	quiz *quiz.Session
}

// NewSession is exported for infrastructure layers and tests that seed sessions.
func NewSession(id, ownerID string, core *quiz.Session) *Session {
	return &Session{id: id, ownerID: ownerID, createdAt: time.Now(), quiz: core}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) OwnerID() string { return s.ownerID }

func (s *Session) apply(op func(*quiz.Session), rec Recorder, logger zerolog.Logger) quiz.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasLocked := s.quiz.AnswerLocked()
	wasDone := s.quiz.ResultsVisible()
	scoreBefore := s.quiz.Score()

	op(s.quiz)

	if !wasLocked && s.quiz.AnswerLocked() {
		rec.AnswerSubmitted(s.quiz.Score() > scoreBefore)
	}
	if !wasDone && s.quiz.ResultsVisible() {
		result := s.quiz.Result()
		rec.SessionCompleted(string(result.Tier))
		logger.Info().Str("session_id", s.id).Int("score", result.Score).Int("percentage", result.Percentage).Str("tier", string(result.Tier)).Msg("quiz session completed")
	}
	return s.quiz.Snapshot()
}
