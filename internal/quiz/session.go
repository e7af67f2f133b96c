// Package quiz implements the single-player quiz session state machine.
//
// A Session is owned by one caller and is not safe for concurrent use.
// Calls that violate an operation's preconditions are ignored rather than
// reported, so a presentation loop can forward user input verbatim.
package quiz

import (
	"math"
	"math/rand"
	"time"

	"fan-quiz-service/internal/domain"
)

// NoAnswer marks a question without a recorded answer.
const NoAnswer = -1

// Shuffler permutes n elements through swap, with the signature of rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// Option configures a Session.
type Option func(*Session)

// WithShuffler replaces the random permutation source.
func WithShuffler(shuffle Shuffler) Option {
	return func(s *Session) {
		if shuffle != nil {
			s.shuffle = shuffle
		}
	}
}

// Session tracks one attempt at the whole bank.
type Session struct {
	bank    []domain.Question
	shuffle Shuffler

	questions      []domain.Question
	currentIndex   int
	selected       int
	answerLocked   bool
	answers        []int
	score          int
	resultsVisible bool
}

// NewSession shuffles the bank and returns a session on its first question.
func NewSession(bank []domain.Question, opts ...Option) (*Session, error) {
	if len(bank) == 0 {
		return nil, domain.ErrEmptyBank
	}
	for _, q := range bank {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Session{
		bank: append([]domain.Question(nil), bank...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shuffle == nil {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		s.shuffle = rnd.Shuffle
	}
	s.reset()
	return s, nil
}

func (s *Session) reset() {
	s.questions = append(s.questions[:0], s.bank...)
	s.shuffle(len(s.questions), func(i, j int) {
		s.questions[i], s.questions[j] = s.questions[j], s.questions[i]
	})
	s.answers = make([]int, len(s.questions))
	for i := range s.answers {
		s.answers[i] = NoAnswer
	}
	s.currentIndex = 0
	s.selected = NoAnswer
	s.answerLocked = false
	s.score = 0
	s.resultsVisible = false
}

// SelectOption tentatively picks an option of the current question.
// Ignored once the answer is locked or when index is not an option.
func (s *Session) SelectOption(index int) {
	if s.answerLocked || s.resultsVisible {
		return
	}
	if index < 0 || index >= len(s.CurrentQuestion().Options) {
		return
	}
	s.selected = index
}

// SubmitAnswer locks the selected option and scores it. Without a selection,
// or with the answer already locked, it does nothing.
func (s *Session) SubmitAnswer() {
	if s.selected == NoAnswer || s.answerLocked {
		return
	}
	s.answerLocked = true
	s.answers[s.currentIndex] = s.selected
	if s.selected == s.CurrentQuestion().CorrectAnswer {
		s.score++
	}
}

// Advance moves to the next question, or shows results after the last one.
// It requires a locked answer.
func (s *Session) Advance() {
	if !s.answerLocked || s.resultsVisible {
		return
	}
	if s.currentIndex == len(s.questions)-1 {
		s.resultsVisible = true
		return
	}
	s.currentIndex++
	s.selected = NoAnswer
	s.answerLocked = false
}

// Restart reshuffles the bank and resets every field.
func (s *Session) Restart() {
	s.reset()
}

// CurrentQuestion returns the question at the current index.
func (s *Session) CurrentQuestion() domain.Question {
	return s.questions[s.currentIndex]
}

func (s *Session) CurrentIndex() int { return s.currentIndex }

// QuestionNumber is the one-based position of the current question.
func (s *Session) QuestionNumber() int { return s.currentIndex + 1 }

func (s *Session) TotalQuestions() int { return len(s.questions) }

// ProgressFraction is (currentIndex+1)/total.
func (s *Session) ProgressFraction() float64 {
	if len(s.questions) == 0 {
		return 0
	}
	return float64(s.currentIndex+1) / float64(len(s.questions))
}

// SelectedOption returns the tentative choice, if any.
func (s *Session) SelectedOption() (int, bool) {
	return s.selected, s.selected != NoAnswer
}

func (s *Session) AnswerLocked() bool { return s.answerLocked }

// RecordedAnswers returns one slot per question; NoAnswer marks an empty slot.
func (s *Session) RecordedAnswers() []int {
	return append([]int(nil), s.answers...)
}

// Questions returns the session's question order.
func (s *Session) Questions() []domain.Question {
	return append([]domain.Question(nil), s.questions...)
}

func (s *Session) Score() int { return s.score }

// WrongAnswers counts every question not answered correctly.
func (s *Session) WrongAnswers() int { return len(s.questions) - s.score }

// ScorePercentage is round(100*score/total), or 0 for an empty session.
func (s *Session) ScorePercentage() int {
	if len(s.questions) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.score) / float64(len(s.questions))))
}

// Tier classifies the current score percentage.
func (s *Session) Tier() Tier {
	return Classify(s.ScorePercentage())
}

func (s *Session) ResultsVisible() bool { return s.resultsVisible }

// IsOptionCorrect reports whether index is the correct option. known is
// false until the answer is locked.
func (s *Session) IsOptionCorrect(index int) (correct, known bool) {
	if !s.answerLocked {
		return false, false
	}
	return index == s.CurrentQuestion().CorrectAnswer, true
}

// IsOptionMarkedWrong reports whether index is the submitted, incorrect
// option. known is false until the answer is locked.
func (s *Session) IsOptionMarkedWrong(index int) (wrong, known bool) {
	if !s.answerLocked {
		return false, false
	}
	return index == s.selected && index != s.CurrentQuestion().CorrectAnswer, true
}
