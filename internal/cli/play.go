package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fan-quiz-service/internal/app"
	"fan-quiz-service/internal/auth"
	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/infra/memory"
	"fan-quiz-service/internal/quiz"
)

// NewPlayCmd plays the quiz interactively on stdin/stdout.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := quietLogger(newLogger(cfg))
			out := cmd.OutOrStdout()

			manager := auth.NewManager(newProvider(cfg, devicePrompt(out), logger), logger)
			defer manager.Close()

			service := app.NewQuizService(memory.NewSessionStore(), newBankRepository(cfg), app.WithLogger(logger))
			return newTerminal(manager, service, cmd.InOrStdin(), out).Run(cmd.Context())
		},
	}
}

// quietLogger keeps info logs from interleaving with the game text.
func quietLogger(logger zerolog.Logger) zerolog.Logger {
	return logger.Level(max(logger.GetLevel(), zerolog.WarnLevel))
}

func devicePrompt(out io.Writer) auth.DevicePrompt {
	return func(verificationURL, userCode string) {
		fmt.Fprintf(out, "To sign in, open %s and enter the code %s\n", verificationURL, userCode)
	}
}

type roundOutcome int

const (
	outcomeQuit roundOutcome = iota
	outcomeSignOut
	// outcomeSignedOut means the provider dropped the user mid-round.
	outcomeSignedOut
)

type activeRound struct {
	id      string
	ownerID string
}

type terminal struct {
	auth *auth.Manager
	quiz *app.QuizService
	in   *bufio.Scanner
	out  io.Writer

	mu     sync.Mutex
	active *activeRound
}

func newTerminal(manager *auth.Manager, service *app.QuizService, in io.Reader, out io.Writer) *terminal {
	t := &terminal{auth: manager, quiz: service, in: bufio.NewScanner(in), out: out}
	manager.OnChange(t.onAuthChange)
	return t
}

// onAuthChange drops the running round as soon as the user is signed out.
// A sign-out that arrives after a newer sign-in is stale and ignored.
func (t *terminal) onAuthChange(user *domain.User) {
	if user != nil || t.auth.IsAuthenticated() {
		return
	}
	t.mu.Lock()
	round := t.active
	t.active = nil
	t.mu.Unlock()
	if round != nil {
		t.quiz.Abandon(context.Background(), round.id, round.ownerID)
	}
}

func (t *terminal) setActive(round *activeRound) {
	t.mu.Lock()
	t.active = round
	t.mu.Unlock()
}

// signedOut reports whether the round must stop because nobody is signed in
// anymore. err is the error of the last quiz call, if any.
func (t *terminal) signedOut(err error) bool {
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return false
	}
	if t.auth.IsAuthenticated() {
		return false
	}
	fmt.Fprintln(t.out, "You have been signed out.")
	return true
}

// Run loops sign-in and quiz rounds until the player quits or input ends.
func (t *terminal) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "Real Madrid Fan Quiz")
	for {
		user, ok, err := t.signIn(ctx)
		if err != nil || !ok {
			return err
		}
		outcome, err := t.play(ctx, user)
		if err != nil {
			return err
		}
		switch outcome {
		case outcomeQuit:
			fmt.Fprintln(t.out, "¡Hala Madrid!")
			return nil
		case outcomeSignedOut:
			continue
		}
		if err := t.auth.SignOut(ctx); err != nil {
			fmt.Fprintln(t.out, t.auth.ErrorMessage())
			continue
		}
		fmt.Fprintln(t.out, "Signed out.")
	}
}

func (t *terminal) signIn(ctx context.Context) (domain.User, bool, error) {
	for {
		if user := t.auth.User(); user != nil {
			return *user, true, nil
		}
		fmt.Fprintln(t.out, "Sign in to play the quiz and test your Real Madrid knowledge.")
		line, ok := t.prompt("Press Enter to sign in, or q to quit: ")
		if !ok || isQuit(line) {
			return domain.User{}, false, nil
		}
		t.auth.ClearError()
		if _, err := t.auth.SignIn(ctx); err != nil {
			fmt.Fprintln(t.out, t.auth.ErrorMessage())
			if ctx.Err() != nil {
				return domain.User{}, false, ctx.Err()
			}
		}
	}
}

func (t *terminal) play(ctx context.Context, user domain.User) (roundOutcome, error) {
	id, view, err := t.quiz.Start(ctx, &user)
	if err != nil {
		return outcomeQuit, fmt.Errorf("start quiz: %w", err)
	}
	t.setActive(&activeRound{id: id, ownerID: user.ID})
	defer func() {
		t.setActive(nil)
		t.quiz.Abandon(context.WithoutCancel(ctx), id, user.ID)
	}()

	fmt.Fprintf(t.out, "Welcome back, %s!\n", user.DisplayNameOrEmail())
	fmt.Fprintf(t.out, "%d questions about the greatest club in football history.\n", view.TotalQuestions)

	for {
		if t.signedOut(nil) {
			return outcomeSignedOut, nil
		}
		if view.ResultsVisible {
			t.printResult(*view.Result)
			line, ok := t.prompt("Play again? [y]es / [n]o / [s]ign out: ")
			switch strings.ToLower(line) {
			case "y", "yes", "":
				if !ok {
					return outcomeQuit, nil
				}
				if view, err = t.quiz.Restart(ctx, id, user.ID); err != nil {
					return t.roundError(err)
				}
				continue
			case "s":
				return outcomeSignOut, nil
			default:
				return outcomeQuit, nil
			}
		}

		t.printQuestion(view)
		choice, ok := t.readChoice(len(view.Question.Options))
		if !ok {
			return outcomeQuit, nil
		}
		if _, err = t.quiz.Select(ctx, id, user.ID, choice); err != nil {
			return t.roundError(err)
		}
		if view, err = t.quiz.Submit(ctx, id, user.ID); err != nil {
			return t.roundError(err)
		}
		t.printFeedback(view)

		next := "Press Enter for the next question..."
		if view.QuestionNumber == view.TotalQuestions {
			next = "Press Enter to see your results..."
		}
		if _, ok := t.prompt(next); !ok {
			return outcomeQuit, nil
		}
		if view, err = t.quiz.Advance(ctx, id, user.ID); err != nil {
			return t.roundError(err)
		}
	}
}

func (t *terminal) roundError(err error) (roundOutcome, error) {
	if t.signedOut(err) {
		return outcomeSignedOut, nil
	}
	return outcomeQuit, err
}

// readChoice returns a zero-based option index. ok is false when the player
// confirms quitting or input ends.
func (t *terminal) readChoice(options int) (int, bool) {
	for {
		line, ok := t.prompt(fmt.Sprintf("Your answer (1-%d, q to quit): ", options))
		if !ok {
			return 0, false
		}
		if isQuit(line) {
			confirm, ok := t.prompt("Are you sure you want to quit? Your progress will be lost. [y/N]: ")
			if !ok || strings.EqualFold(confirm, "y") {
				return 0, false
			}
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > options {
			fmt.Fprintf(t.out, "Pick a number between 1 and %d.\n", options)
			continue
		}
		return n - 1, true
	}
}

func (t *terminal) printQuestion(view quiz.View) {
	fmt.Fprintf(t.out, "\nQuestion %d of %d\n%s\n", view.QuestionNumber, view.TotalQuestions, view.Question.Text)
	for _, opt := range view.Question.Options {
		fmt.Fprintf(t.out, "  %d) %s\n", opt.Index+1, opt.Text)
	}
}

func (t *terminal) printFeedback(view quiz.View) {
	var correct string
	wrong := false
	for _, opt := range view.Question.Options {
		if opt.Correct != nil && *opt.Correct {
			correct = opt.Text
		}
		if opt.MarkedWrong != nil && *opt.MarkedWrong {
			wrong = true
		}
	}
	if wrong {
		fmt.Fprintf(t.out, "Wrong! The correct answer is: %s\n", correct)
		return
	}
	fmt.Fprintln(t.out, "Correct!")
}

func (t *terminal) printResult(r quiz.Result) {
	fmt.Fprintf(t.out, "\nQuiz Completed!\n%s\n", r.Message)
	fmt.Fprintf(t.out, "Your Score: %d / %d\n", r.Score, r.Total)
	fmt.Fprintf(t.out, "Correct Answers: %d\n", r.Score)
	fmt.Fprintf(t.out, "Wrong Answers: %d\n", r.Wrong)
	fmt.Fprintf(t.out, "Accuracy: %d%%\n", r.Percentage)
}

func (t *terminal) prompt(text string) (string, bool) {
	fmt.Fprint(t.out, text)
	if !t.in.Scan() {
		fmt.Fprintln(t.out)
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func isQuit(line string) bool {
	return strings.EqualFold(line, "q") || strings.EqualFold(line, "quit")
}
