package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm/clause"
)

// EnsureNonce records that signer used nonce, returning true when the pair
// was already present.
func (s *Storage) EnsureNonce(ctx context.Context, signer, nonce string, timestamp int64) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("storage not configured")
	}
	signer = strings.ToLower(strings.TrimSpace(signer))
	nonce = strings.TrimSpace(nonce)
	if signer == "" || nonce == "" {
		return false, fmt.Errorf("nonce record incomplete")
	}
	rec := NonceRecord{
		Signer:     signer,
		Nonce:      nonce,
		Timestamp:  timestamp,
		ObservedAt: s.now().UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("record nonce: %w", res.Error)
	}
	return res.RowsAffected == 0, nil
}

// PruneNonces deletes nonces observed before cutoff. Requests older than the
// signature skew window are rejected anyway.
func (s *Storage) PruneNonces(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("storage not configured")
	}
	res := s.db.WithContext(ctx).Where("observed_at < ?", cutoff.UTC()).Delete(&NonceRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune nonces: %w", res.Error)
	}
	return res.RowsAffected, nil
}
