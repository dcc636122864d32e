package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Definitions is the read-only view of quizzes and their questions. The
// underlying rows are owned by the course CRUD layer; this core only reads.
type Definitions interface {
	GetQuiz(ctx context.Context, quizID string) (*Quiz, error)
	Questions(ctx context.Context, quizID string) ([]Question, error)
	ListOpen(ctx context.Context, now time.Time) ([]Quiz, error)
}

// AttemptStore is the durable attempt mapping keyed by (student, quiz).
// CreateAttempt must be atomic insert-if-absent.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, att Attempt) (inserted bool, err error)
	GetAttempt(ctx context.Context, studentID, quizID string) (*Attempt, error)
}

// Repository reads quiz definitions and persists attempts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetQuiz returns a quiz by id, or nil when absent.
func (r *Repository) GetQuiz(ctx context.Context, quizID string) (*Quiz, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, time_limit_mins, start_time, end_time, active
		FROM quizzes WHERE id = $1
	`, quizID)
	var q Quiz
	if err := row.Scan(&q.ID, &q.Title, &q.TimeLimitMins, &q.StartTime, &q.EndTime, &q.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// Questions returns a quiz's questions in stable order, correct answers
// included. Callers serving students must strip CorrectAnswer.
func (r *Repository) Questions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quiz_id, question_text, option_a, option_b, option_c, option_d, correct_answer, marks
		FROM questions
		WHERE quiz_id = $1
		ORDER BY id
	`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Marks); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

// ListOpen returns active quizzes whose submission window contains now.
func (r *Repository) ListOpen(ctx context.Context, now time.Time) ([]Quiz, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, time_limit_mins, start_time, end_time, active
		FROM quizzes
		WHERE active = TRUE AND start_time <= $1 AND end_time >= $1
		ORDER BY end_time
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Quiz
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.TimeLimitMins, &q.StartTime, &q.EndTime, &q.Active); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

// CreateAttempt inserts an attempt if none exists for (student, quiz). The
// UNIQUE constraint plus ON CONFLICT DO NOTHING makes the duplicate check and
// the insert one atomic step; the first stored attempt is never altered.
func (r *Repository) CreateAttempt(ctx context.Context, att Attempt) (bool, error) {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quiz_attempts
			(id, student_id, quiz_id, started_at, submitted_at, total_questions, correct_answers, score, weighted_score, answers, completed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (student_id, quiz_id) DO NOTHING
	`, att.ID, att.StudentID, att.QuizID, att.StartedAt, att.SubmittedAt,
		att.TotalQuestions, att.CorrectAnswers, att.Score, att.WeightedScore, answers, att.Completed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetAttempt returns a stored attempt, or nil when absent.
func (r *Repository) GetAttempt(ctx context.Context, studentID, quizID string) (*Attempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, quiz_id, started_at, submitted_at, total_questions, correct_answers, score, weighted_score, answers, completed
		FROM quiz_attempts
		WHERE student_id = $1 AND quiz_id = $2
	`, studentID, quizID)
	var att Attempt
	var answers []byte
	if err := row.Scan(&att.ID, &att.StudentID, &att.QuizID, &att.StartedAt, &att.SubmittedAt,
		&att.TotalQuestions, &att.CorrectAnswers, &att.Score, &att.WeightedScore, &answers, &att.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &att.Answers); err != nil {
			return nil, err
		}
	}
	return &att, nil
}
