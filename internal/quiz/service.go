package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"

	"academy/internal/apperr"
	"academy/internal/clock"
)

// Service grades and persists exactly one submission per (student, quiz).
type Service struct {
	defs     Definitions
	attempts AttemptStore
	clk      clock.Clock
}

// NewService creates a scoring engine over the given stores.
func NewService(defs Definitions, attempts AttemptStore, clk clock.Clock) *Service {
	return &Service{defs: defs, attempts: attempts, clk: clk}
}

// Submit grades answers against the quiz's questions and stores the attempt.
// Grading is count-based: every question is worth one unit for the primary
// score regardless of its marks value, and the percentage truncates toward
// zero. A marks-weighted percentage is stored alongside as WeightedScore.
func (s *Service) Submit(ctx context.Context, studentID, quizID string, answers map[string]string) (Attempt, error) {
	q, err := s.defs.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if q == nil {
		return Attempt{}, apperr.New(apperr.NotFound, "quiz not found")
	}

	now := s.clk.Now()
	if !q.Active || now.Before(q.StartTime) || now.After(q.EndTime) {
		return Attempt{}, apperr.New(apperr.Validation, "quiz is not open for submission")
	}

	questions, err := s.defs.Questions(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if len(questions) == 0 {
		return Attempt{}, apperr.New(apperr.Validation, "quiz has no questions")
	}

	correct := 0
	earnedMarks, totalMarks := 0, 0
	for _, question := range questions {
		totalMarks += question.Marks
		if submitted, ok := answers[question.ID]; ok && submitted == question.CorrectAnswer {
			correct++
			earnedMarks += question.Marks
		}
	}

	total := len(questions)
	score := correct * 100 / total
	weighted := 0
	if totalMarks > 0 {
		weighted = earnedMarks * 100 / totalMarks
	}

	att := Attempt{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		QuizID:         quizID,
		StartedAt:      now.Add(-time.Duration(q.TimeLimitMins) * time.Minute),
		SubmittedAt:    now,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Score:          score,
		WeightedScore:  weighted,
		Answers:        answers,
		Completed:      true,
	}
	inserted, err := s.attempts.CreateAttempt(ctx, att)
	if err != nil {
		return Attempt{}, err
	}
	if !inserted {
		return Attempt{}, apperr.New(apperr.AlreadyAttempted, "quiz already attempted")
	}
	return att, nil
}

// Open returns quizzes currently accepting submissions.
func (s *Service) Open(ctx context.Context) ([]Quiz, error) {
	return s.defs.ListOpen(ctx, s.clk.Now())
}

// QuestionsForStudent returns a quiz's questions with correct answers
// stripped by the Question JSON encoding.
func (s *Service) QuestionsForStudent(ctx context.Context, quizID string) ([]Question, error) {
	q, err := s.defs.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.New(apperr.NotFound, "quiz not found")
	}
	return s.defs.Questions(ctx, quizID)
}
