package store

import (
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements OutboxRepo.
var _ OutboxRepo = (*PostgresStore)(nil)

// ClaimDueOutboxMessages claims rows atomically; SKIP LOCKED lets several
// instances share one outbox table.
func (s *PostgresStore) ClaimDueOutboxMessages(now time.Time, limit int) ([]OutboxMessage, error) {
	msgs, err := queryList(s.sqlStore, scanOutboxMessage,
		`UPDATE outbox_messages SET status = 'sending', locked_at = ?, updated_at = ?
		 WHERE id IN (
		   SELECT id FROM outbox_messages WHERE status = 'queued' AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		   ORDER BY created_at ASC LIMIT ?
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+outboxColumns,
		now.UTC(), now.UTC(), now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due outbox messages failed: %w", err)
	}
	return msgs, nil
}
