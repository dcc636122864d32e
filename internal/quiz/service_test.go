package quiz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"academy/internal/apperr"
	"academy/internal/clock"
)

type fakeDefs struct {
	quizzes   map[string]Quiz
	questions map[string][]Question
}

func (f *fakeDefs) GetQuiz(_ context.Context, quizID string) (*Quiz, error) {
	q, ok := f.quizzes[quizID]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *fakeDefs) Questions(_ context.Context, quizID string) ([]Question, error) {
	return f.questions[quizID], nil
}

func (f *fakeDefs) ListOpen(_ context.Context, now time.Time) ([]Quiz, error) {
	var res []Quiz
	for _, q := range f.quizzes {
		if q.Active && !now.Before(q.StartTime) && !now.After(q.EndTime) {
			res = append(res, q)
		}
	}
	return res, nil
}

// fakeAttempts keys by (student, quiz) under a lock, mirroring the unique
// constraint in Postgres.
type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]Attempt)}
}

func (f *fakeAttempts) CreateAttempt(_ context.Context, att Attempt) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := att.StudentID + "|" + att.QuizID
	if _, exists := f.attempts[key]; exists {
		return false, nil
	}
	f.attempts[key] = att
	return true, nil
}

func (f *fakeAttempts) GetAttempt(_ context.Context, studentID, quizID string) (*Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.attempts[studentID+"|"+quizID]
	if !ok {
		return nil, nil
	}
	return &att, nil
}

func openQuiz(id string, now time.Time, questions ...Question) *fakeDefs {
	return &fakeDefs{
		quizzes: map[string]Quiz{id: {
			ID:            id,
			Title:         "Weekly check",
			TimeLimitMins: 30,
			StartTime:     now.Add(-time.Hour),
			EndTime:       now.Add(time.Hour),
			Active:        true,
		}},
		questions: map[string][]Question{id: questions},
	}
}

func question(id, correct string, marks int) Question {
	return Question{ID: id, QuizID: "q1", Text: "?", CorrectAnswer: correct, Marks: marks}
}

func TestSubmitScoring(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		questions   []Question
		answers     map[string]string
		wantCorrect int
		wantScore   int
	}{
		{
			name: "three of four",
			questions: []Question{
				question("q1-1", "A", 1), question("q1-2", "B", 1),
				question("q1-3", "C", 1), question("q1-4", "D", 1),
			},
			answers:     map[string]string{"q1-1": "A", "q1-2": "B", "q1-3": "C", "q1-4": "A"},
			wantCorrect: 3,
			wantScore:   75,
		},
		{
			name: "one of three truncates",
			questions: []Question{
				question("q1-1", "A", 1), question("q1-2", "B", 1), question("q1-3", "C", 1),
			},
			answers:     map[string]string{"q1-1": "A", "q1-2": "D"},
			wantCorrect: 1,
			wantScore:   33,
		},
		{
			name: "missing answers count as wrong",
			questions: []Question{
				question("q1-1", "A", 1), question("q1-2", "B", 1),
			},
			answers:     map[string]string{},
			wantCorrect: 0,
			wantScore:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(openQuiz("q1", now, tt.questions...), newFakeAttempts(), clock.Fixed{T: now})
			att, err := svc.Submit(context.Background(), "s1", "q1", tt.answers)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCorrect, att.CorrectAnswers)
			assert.Equal(t, tt.wantScore, att.Score)
			assert.Equal(t, len(tt.questions), att.TotalQuestions)
			assert.True(t, att.Completed)
			assert.Equal(t, now, att.SubmittedAt)
			assert.Equal(t, now.Add(-30*time.Minute), att.StartedAt)
		})
	}
}

func TestSubmitWeightedScore(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	defs := openQuiz("q1", now,
		question("q1-1", "A", 5),
		question("q1-2", "B", 1),
	)
	svc := NewService(defs, newFakeAttempts(), clock.Fixed{T: now})

	att, err := svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "A"})
	assert.NoError(t, err)
	// Primary score stays count-based; weighting is the secondary field.
	assert.Equal(t, 50, att.Score)
	assert.Equal(t, 83, att.WeightedScore)
}

func TestSubmitFailures(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("unknown quiz", func(t *testing.T) {
		svc := NewService(&fakeDefs{quizzes: map[string]Quiz{}}, newFakeAttempts(), clock.Fixed{T: now})
		_, err := svc.Submit(context.Background(), "s1", "missing", nil)
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("zero questions", func(t *testing.T) {
		svc := NewService(openQuiz("q1", now), newFakeAttempts(), clock.Fixed{T: now})
		_, err := svc.Submit(context.Background(), "s1", "q1", map[string]string{})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("window closed", func(t *testing.T) {
		defs := openQuiz("q1", now, question("q1-1", "A", 1))
		svc := NewService(defs, newFakeAttempts(), clock.Fixed{T: now.Add(2 * time.Hour)})
		_, err := svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "A"})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("inactive quiz", func(t *testing.T) {
		defs := openQuiz("q1", now, question("q1-1", "A", 1))
		q := defs.quizzes["q1"]
		q.Active = false
		defs.quizzes["q1"] = q
		svc := NewService(defs, newFakeAttempts(), clock.Fixed{T: now})
		_, err := svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "A"})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})
}

func TestSubmitSecondAttemptRejectedUnchanged(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	defs := openQuiz("q1", now, question("q1-1", "A", 1), question("q1-2", "B", 1))
	attempts := newFakeAttempts()
	svc := NewService(defs, attempts, clock.Fixed{T: now})

	first, err := svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "A", "q1-2": "B"})
	assert.NoError(t, err)
	assert.Equal(t, 100, first.Score)

	_, err = svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "C"})
	assert.True(t, apperr.Is(err, apperr.AlreadyAttempted))

	stored, _ := attempts.GetAttempt(context.Background(), "s1", "q1")
	if assert.NotNil(t, stored) {
		assert.Equal(t, first.ID, stored.ID)
		assert.Equal(t, 100, stored.Score)
		assert.Equal(t, map[string]string{"q1-1": "A", "q1-2": "B"}, stored.Answers)
	}
}

func TestSubmitConcurrentSingleWinner(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	defs := openQuiz("q1", now, question("q1-1", "A", 1))
	attempts := newFakeAttempts()
	svc := NewService(defs, attempts, clock.Fixed{T: now})

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Submit(context.Background(), "s1", "q1", map[string]string{"q1-1": "A"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperr.Is(err, apperr.AlreadyAttempted))
		}
	}
	assert.Equal(t, 1, wins)
}

func TestOpenFiltersByWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	defs := &fakeDefs{quizzes: map[string]Quiz{
		"open":     {ID: "open", Active: true, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		"past":     {ID: "past", Active: true, StartTime: now.Add(-3 * time.Hour), EndTime: now.Add(-2 * time.Hour)},
		"inactive": {ID: "inactive", Active: false, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
	}}
	svc := NewService(defs, newFakeAttempts(), clock.Fixed{T: now})

	open, err := svc.Open(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, open, 1) {
		assert.Equal(t, "open", open[0].ID)
	}
}
