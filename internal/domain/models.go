package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultDisplayName is shown when a user has neither a display name nor an email.
const DefaultDisplayName = "Madridista"

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correct_answer"`
}

// Validate checks that the correct answer points at one of the options.
func (q Question) Validate() error {
	if len(q.Options) == 0 {
		return fmt.Errorf("%w: %q has no options", ErrInvalidQuestion, q.ID)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: %q correct answer %d outside [0,%d)", ErrInvalidQuestion, q.ID, q.CorrectAnswer, len(q.Options))
	}
	return nil
}

// User is the signed-in identity handed over by the auth provider.
// Email and DisplayName are empty when the provider did not share them.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// DisplayNameOrEmail picks the friendliest available name.
func (u User) DisplayNameOrEmail() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		local, _, _ := strings.Cut(u.Email, "@")
		return local
	}
	return DefaultDisplayName
}

// Initials returns up to two upper-cased letters for an avatar badge.
func (u User) Initials() string {
	name := u.DisplayNameOrEmail()
	words := strings.Fields(name)
	if len(words) >= 2 {
		return strings.ToUpper(firstRunes(words[0], 1) + firstRunes(words[1], 1))
	}
	return strings.ToUpper(firstRunes(name, 2))
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
