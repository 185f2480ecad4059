package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opsboard/internal/domain"
)

// RequestEventRepository stores the append-only audit trail.
type RequestEventRepository interface {
	Append(ctx context.Context, events []domain.RequestEvent) error
	// ListByRequest returns events oldest first, insertion order breaking ties.
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestEvent, error)
}

type requestEventRepository struct {
	pool *pgxpool.Pool
}

// NewRequestEventRepository builds repository.
func NewRequestEventRepository(pool *pgxpool.Pool) RequestEventRepository {
	return &requestEventRepository{pool: pool}
}

func (r *requestEventRepository) Append(ctx context.Context, events []domain.RequestEvent) error {
	const query = `
        INSERT INTO request_events (id, request_id, type, from_value, to_value, performed_by_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(query,
			ev.ID,
			ev.RequestID,
			ev.Type,
			ev.FromValue,
			ev.ToValue,
			ev.PerformedByID,
			ev.CreatedAt,
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	for range events {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func (r *requestEventRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestEvent, error) {
	const query = `
        SELECT id, request_id, type, from_value, to_value, performed_by_id, created_at
        FROM request_events WHERE request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestEvent
	for rows.Next() {
		var ev domain.RequestEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.RequestID,
			&ev.Type,
			&ev.FromValue,
			&ev.ToValue,
			&ev.PerformedByID,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
