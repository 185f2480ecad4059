package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opsboard/internal/domain"
)

// RequestRepository encapsulates request snapshot persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	Update(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error)
	// ListActive returns every request that is not DONE, joined with its owner.
	ListActive(ctx context.Context) ([]domain.RequestView, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `r.id, r.type, r.description, r.urgency, r.location, r.requested_by,
               r.status, r.owner_id, r.created_by_id, r.created_at, r.updated_at, r.closed_at, r.last_event_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (id, type, description, urgency, location, requested_by, status,
            owner_id, created_by_id, created_at, updated_at, closed_at, last_event_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		req.ID,
		req.Type,
		req.Description,
		req.Urgency,
		req.Location,
		req.RequestedBy,
		req.Status,
		req.OwnerID,
		req.CreatedByID,
		req.CreatedAt,
		req.UpdatedAt,
		req.ClosedAt,
		req.LastEventAt,
	)
	return err
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	const query = `
        UPDATE requests SET status=$1, owner_id=$2, updated_at=$3, closed_at=$4, last_event_at=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		req.Status,
		req.OwnerID,
		req.UpdatedAt,
		req.ClosedAt,
		req.LastEventAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Request, error) {
	var req domain.Request
	if err := conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(requestDest(&req)...); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListActive(ctx context.Context) ([]domain.RequestView, error) {
	query := `SELECT ` + requestColumns + `, u.name
             FROM requests r JOIN users u ON u.id = r.owner_id
             WHERE r.status <> 'DONE'
             ORDER BY r.created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestView
	for rows.Next() {
		var item domain.RequestView
		dest := append(requestDest(&item.Request), &item.Owner.Name)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		item.Owner.ID = item.OwnerID
		result = append(result, item)
	}
	return result, rows.Err()
}

func requestDest(req *domain.Request) []any {
	return []any{
		&req.ID,
		&req.Type,
		&req.Description,
		&req.Urgency,
		&req.Location,
		&req.RequestedBy,
		&req.Status,
		&req.OwnerID,
		&req.CreatedByID,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ClosedAt,
		&req.LastEventAt,
	}
}
