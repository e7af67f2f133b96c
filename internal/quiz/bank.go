package quiz

import (
	_ "embed"
	"fmt"

	"fan-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var embeddedBank []byte

// DefaultBank returns the question bank compiled into the binary.
func DefaultBank() ([]domain.Question, error) {
	return ParseBank(embeddedBank)
}

// ParseBank decodes a YAML question list and validates every entry.
func ParseBank(data []byte) ([]domain.Question, error) {
	var questions []domain.Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	if err := ValidateBank(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ValidateBank rejects empty banks, duplicate ids and out-of-range answers.
func ValidateBank(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrEmptyBank
	}
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
