// Package memory keeps users, requests and audit events in-process. It backs tests and
// development runs without a database. Transactions are serialized and a failed one
// restores the state it started from.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/repository"
)

// Store holds all tables. Use the accessor methods to get repository views.
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	users    map[string]domain.User
	requests map[string]domain.Request
	events   []domain.RequestEvent
}

// NewStore initializes an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		requests: make(map[string]domain.Request),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Requests returns the request repository view.
func (s *Store) Requests() repository.RequestRepository { return requestRepo{s} }

// Events returns the audit event repository view.
func (s *Store) Events() repository.RequestEventRepository { return eventRepo{s} }

// TxManager returns the transaction manager for this store.
func (s *Store) TxManager() repository.TxManager { return txManager{s} }

type txKey struct{}

type snapshot struct {
	users    map[string]domain.User
	requests map[string]domain.Request
	events   []domain.RequestEvent
}

type txManager struct{ s *Store }

func (m txManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	saved := m.s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.s.restore(saved)
			panic(p)
		} else if err != nil {
			m.s.restore(saved)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// autocommit serializes a standalone call against running transactions.
func (s *Store) autocommit(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:    maps.Clone(s.users),
		requests: maps.Clone(s.requests),
		events:   slices.Clone(s.events),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.requests = snap.requests
	s.events = snap.events
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.User
	for _, id := range ids {
		if user, ok := r.s.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

func (r userRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.User
	for _, user := range r.s.users {
		if user.IsActive {
			result = append(result, user)
		}
	}
	slices.SortFunc(result, func(a, b domain.User) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})
	return result, nil
}

func (r userRepo) Upsert(ctx context.Context, user *domain.User) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range r.s.users {
		if existing.Email != user.Email {
			continue
		}
		existing.Name = user.Name
		existing.PasswordHash = user.PasswordHash
		existing.IsActive = user.IsActive
		existing.UpdatedAt = now
		r.s.users[id] = existing
		*user = existing
		return nil
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) SetActive(ctx context.Context, email string, active bool) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, user := range r.s.users {
		if user.Email == email {
			user.IsActive = active
			user.UpdatedAt = time.Now().UTC()
			r.s.users[id] = user
			return nil
		}
	}
	return pgx.ErrNoRows
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(ctx context.Context, req *domain.Request) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.requests[req.ID]; exists {
		return errDuplicateKey
	}
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r requestRepo) Update(ctx context.Context, req *domain.Request) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.requests[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Status = req.Status
	current.OwnerID = req.OwnerID
	current.UpdatedAt = req.UpdatedAt
	current.ClosedAt = req.ClosedAt
	current.LastEventAt = req.LastEventAt
	r.s.requests[req.ID] = cloneRequest(current)
	return nil
}

func (r requestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	req = cloneRequest(req)
	return &req, nil
}

// GetByIDForUpdate needs no row lock: transactions already run one at a time.
func (r requestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepo) ListActive(ctx context.Context) ([]domain.RequestView, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.RequestView
	for _, req := range r.s.requests {
		if req.Status == domain.RequestStatusDone {
			continue
		}
		owner := r.s.users[req.OwnerID]
		result = append(result, domain.RequestView{Request: cloneRequest(req), Owner: owner.Ref()})
	}
	slices.SortFunc(result, func(a, b domain.RequestView) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Append(ctx context.Context, events []domain.RequestEvent) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ev := range events {
		if _, ok := r.s.requests[ev.RequestID]; !ok {
			return errForeignKey
		}
	}
	r.s.events = append(r.s.events, events...)
	return nil
}

func (r eventRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestEvent, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.RequestEvent
	for _, ev := range r.s.events {
		if ev.RequestID == requestID {
			result = append(result, ev)
		}
	}
	// Stable sort keeps insertion order as the tie-breaker.
	slices.SortStableFunc(result, func(a, b domain.RequestEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func cloneRequest(req domain.Request) domain.Request {
	if req.ClosedAt != nil {
		closedAt := *req.ClosedAt
		req.ClosedAt = &closedAt
	}
	return req
}
