package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"academy/internal/apperr"
	"academy/internal/batch"
	"academy/internal/clock"
)

// Service redeems tokens into attendance records and answers attendance
// queries.
type Service struct {
	tokens  TokenStore
	records RecordStore
	dir     batch.Directory
	clk     clock.Clock
}

// NewService creates a service backed by the given stores.
func NewService(tokens TokenStore, records RecordStore, dir batch.Directory, clk clock.Clock) *Service {
	return &Service{tokens: tokens, records: records, dir: dir, clk: clk}
}

// Redeem converts a presented token into at most one attendance record for
// the student today. Checks run in order: token exists, token active, token
// not past expiry. The active flag and the time check are independent; a
// stale-but-active token is still rejected. The record is attributed to the
// student's current batch assignment, not the token's batch.
func (s *Service) Redeem(ctx context.Context, studentID, tokenID string) (Record, error) {
	tok, err := s.tokens.GetToken(ctx, tokenID)
	if err != nil {
		return Record{}, err
	}
	if tok == nil {
		return Record{}, apperr.New(apperr.NotFound, "invalid token")
	}

	now := s.clk.Now()
	if !tok.Active {
		return Record{}, apperr.New(apperr.Expired, "token has expired")
	}
	if !tok.ExpiresAt.After(now) {
		return Record{}, apperr.New(apperr.Expired, "token has expired")
	}

	b, err := s.dir.StudentBatch(ctx, studentID)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		BatchID:       b.ID,
		Date:          now.Truncate(24 * time.Hour),
		Status:        Present,
		MarkedAt:      now,
		SourceTokenID: &tok.ID,
	}
	inserted, err := s.records.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	if !inserted {
		return Record{}, apperr.New(apperr.AlreadyMarked, "attendance already marked for today")
	}
	return rec, nil
}

// CurrentToken returns the active token for a batch today, or NotFound.
func (s *Service) CurrentToken(ctx context.Context, batchID string) (Token, error) {
	day := s.clk.Now().Truncate(24 * time.Hour)
	tok, err := s.tokens.ActiveTokenForBatch(ctx, batchID, day)
	if err != nil {
		return Token{}, err
	}
	if tok == nil {
		return Token{}, apperr.New(apperr.NotFound, "no active token for batch")
	}
	return *tok, nil
}

// HistoryForStudent returns a student's attendance records.
func (s *Service) HistoryForStudent(ctx context.Context, studentID string) ([]Record, error) {
	return s.records.ListByStudent(ctx, studentID)
}

// ForDate returns all attendance records on a calendar date.
func (s *Service) ForDate(ctx context.Context, date time.Time) ([]Record, error) {
	return s.records.ListByDate(ctx, date.Truncate(24*time.Hour))
}
