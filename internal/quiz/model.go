package quiz

import "time"

// Quiz is the read-only definition owned by the course CRUD layer.
type Quiz struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	TimeLimitMins int       `json:"time_limit_mins"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Active        bool      `json:"active"`
}

// Question belongs to a quiz. CorrectAnswer never leaves the server; the
// answer itself is an opaque comparable token (a single letter in practice).
type Question struct {
	ID            string `json:"id"`
	QuizID        string `json:"quiz_id"`
	Text          string `json:"text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"-"`
	Marks         int    `json:"marks"`
}

// Attempt is one student's single scored submission for one quiz. At most
// one exists per (student, quiz); a second submission is rejected, never
// overwritten.
type Attempt struct {
	ID             string            `json:"id"`
	StudentID      string            `json:"student_id"`
	QuizID         string            `json:"quiz_id"`
	StartedAt      time.Time         `json:"started_at"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	TotalQuestions int               `json:"total_questions"`
	CorrectAnswers int               `json:"correct_answers"`
	Score          int               `json:"score"`
	WeightedScore  int               `json:"weighted_score"`
	Answers        map[string]string `json:"answers"`
	Completed      bool              `json:"completed"`
}
