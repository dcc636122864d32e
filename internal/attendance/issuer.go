package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"academy/internal/batch"
	"academy/internal/clock"
)

// Issuer produces one fresh token per active batch per scheduled run, and
// on-demand tokens for single batches. Issuance is unconditional: a prior
// token for the same (batch, day) stays active until it times out or is
// explicitly revoked.
type Issuer struct {
	tokens   TokenStore
	dir      batch.Directory
	clk      clock.Clock
	validity time.Duration
}

// NewIssuer creates an issuer. validityHours bounds scheduled tokens;
// zero or negative falls back to 10 hours.
func NewIssuer(tokens TokenStore, dir batch.Directory, clk clock.Clock, validityHours int) *Issuer {
	if validityHours <= 0 {
		validityHours = 10
	}
	return &Issuer{
		tokens:   tokens,
		dir:      dir,
		clk:      clk,
		validity: time.Duration(validityHours) * time.Hour,
	}
}

// RunDaily issues one token per active batch. A failing batch is skipped and
// the run continues; the run is not transactional across batches. Returns the
// number of tokens issued.
func (i *Issuer) RunDaily(ctx context.Context) (int, error) {
	batches, err := i.dir.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active batches: %w", err)
	}

	issued := 0
	for _, b := range batches {
		if _, err := i.issue(ctx, b.ID, i.validity); err != nil {
			log.Printf("token issuance for batch %s failed: %v", b.ID, err)
			continue
		}
		issued++
	}
	return issued, nil
}

// IssueForBatch creates an on-demand token with an explicit validity window.
// validityHours defaults to 8 when not positive.
func (i *Issuer) IssueForBatch(ctx context.Context, batchID string, validityHours int) (Token, error) {
	if validityHours <= 0 {
		validityHours = 8
	}
	return i.issue(ctx, batchID, time.Duration(validityHours)*time.Hour)
}

func (i *Issuer) issue(ctx context.Context, batchID string, validity time.Duration) (Token, error) {
	now := i.clk.Now()
	day := now.Truncate(24 * time.Hour)

	tok := Token{
		ID:        uuid.NewString(),
		BatchID:   batchID,
		Payload:   Payload(batchID, day, now),
		ValidDate: day,
		IssuedAt:  now,
		ExpiresAt: now.Add(validity),
		Active:    true,
	}
	if err := i.tokens.InsertToken(ctx, tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Payload encodes batch, date and issuance instant into the string a client
// scans. Consumers treat it as opaque; only uniqueness per issuance matters.
func Payload(batchID string, day, issuedAt time.Time) string {
	return fmt.Sprintf("BATCH:%s:DATE:%s:TIME:%d", batchID, DateKey(day), issuedAt.UnixMilli())
}
