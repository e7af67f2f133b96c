package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fan-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{BankLoader: EmbeddedBankLoader{}}
	repo := NewBankRepository(loader, time.Minute)

	bank, err := repo.GetBank(context.Background())
	require.NoError(t, err)
	assert.Len(t, bank, 15)

	_, err = repo.GetBank(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loader.Calls())
}

func TestBankRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(sampleBank())}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, err := repo.GetBank(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = repo.GetBank(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Calls())
}

func TestBankRepositoryCollapsesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(sampleBank()), delay: 20 * time.Millisecond}
	repo := NewBankRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetBank(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, loader.Calls())
}

func TestBankRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(nil)}
	repo := NewBankRepository(loader, time.Minute)

	_, err := repo.GetBank(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyBank)
	_, err = repo.GetBank(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyBank)
	assert.Equal(t, 2, loader.Calls())
}

func TestFileBankLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: nickname
  text: What is Real Madrid's nickname?
  options: ["Los Blancos", "Los Azules", "Los Rojos", "Los Amarillos"]
  correct_answer: 0
`), 0o600))

	bank, err := NewFileBankLoader(path).LoadBank(context.Background())
	require.NoError(t, err)
	require.Len(t, bank, 1)
	assert.Equal(t, "Los Blancos", bank[0].Options[bank[0].CorrectAnswer])

	_, err = NewFileBankLoader(filepath.Join(t.TempDir(), "missing.yaml")).LoadBank(context.Background())
	assert.ErrorIs(t, err, domain.ErrBankNotFound)
}

type countingLoader struct {
	BankLoader
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	time.Sleep(l.delay)
	return l.BankLoader.LoadBank(ctx)
}

func (l *countingLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1},
		{ID: "q2", Text: "What is 3 + 3?", Options: []string{"6", "7", "8", "9"}, CorrectAnswer: 0},
	}
}
