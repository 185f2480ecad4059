package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/config"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/events"
	"github.com/spec-kit/opsboard/internal/lifecycle"
	"github.com/spec-kit/opsboard/internal/observability"
	"github.com/spec-kit/opsboard/internal/repository"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// BoardInvalidator drops any cached board after a committed mutation.
type BoardInvalidator interface {
	Invalidate(ctx context.Context)
}

// RequestService coordinates request workflows. Every mutation loads, decides and
// writes inside one transaction; side effects run only after commit.
type RequestService struct {
	tx         repository.TxManager
	requests   repository.RequestRepository
	events     repository.RequestEventRepository
	users      repository.UserRepository
	engine     *lifecycle.Engine
	policy     config.OwnerPolicy
	dispatcher events.Dispatcher
	board      BoardInvalidator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	TxManager   repository.TxManager
	RequestRepo repository.RequestRepository
	EventRepo   repository.RequestEventRepository
	UserRepo    repository.UserRepository
	Engine      *lifecycle.Engine
	OwnerPolicy config.OwnerPolicy
	Dispatcher  events.Dispatcher
	Board       BoardInvalidator
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	engine := deps.Engine
	if engine == nil {
		engine = lifecycle.NewEngine()
	}
	policy := deps.OwnerPolicy
	if policy == "" {
		policy = config.OwnerPolicyDefaultSelf
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		tx:         deps.TxManager,
		requests:   deps.RequestRepo,
		events:     deps.EventRepo,
		users:      deps.UserRepo,
		engine:     engine,
		policy:     policy,
		dispatcher: deps.Dispatcher,
		board:      deps.Board,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Create opens a request on behalf of actorID. in.OwnerID is empty when the caller
// did not pick an owner; the owner policy decides what that means.
func (s *RequestService) Create(ctx context.Context, actorID string, in lifecycle.CreateInput) (*domain.RequestView, error) {
	in = in.Normalize()
	in.OwnerID = canonicalID(in.OwnerID)
	ownerID, err := s.resolveOwner(actorID, in.OwnerID)
	if err != nil {
		return nil, s.mapError(err, "")
	}
	in.OwnerID = ownerID

	var (
		decision lifecycle.Decision
		owner    *domain.User
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		owner, err = s.lookupUser(ctx, in.OwnerID)
		if err != nil {
			return err
		}
		decision, err = s.engine.Create(in, owner, actorID)
		if err != nil {
			return err
		}
		if err := s.requests.Create(ctx, &decision.Request); err != nil {
			return err
		}
		return s.events.Append(ctx, decision.Events)
	})
	if err != nil {
		return nil, s.mapError(err, "")
	}

	s.afterCommit(ctx, decision)
	return &domain.RequestView{Request: decision.Request, Owner: owner.Ref()}, nil
}

// AssignOwner hands the request to ownerID.
func (s *RequestService) AssignOwner(ctx context.Context, actorID, requestID, ownerID string) (*domain.RequestView, error) {
	ownerID = canonicalID(ownerID)
	return s.mutate(ctx, requestID, func(ctx context.Context, req domain.Request) (lifecycle.Decision, error) {
		owner, err := s.lookupUser(ctx, ownerID)
		if err != nil {
			return lifecycle.Decision{}, err
		}
		return s.engine.AssignOwner(req, ownerID, owner, actorID)
	})
}

// ChangeStatus moves the request to status.
func (s *RequestService) ChangeStatus(ctx context.Context, actorID, requestID string, status domain.RequestStatus) (*domain.RequestView, error) {
	return s.mutate(ctx, requestID, func(_ context.Context, req domain.Request) (lifecycle.Decision, error) {
		return s.engine.ChangeStatus(req, status, actorID)
	})
}

// Close moves the request to DONE.
func (s *RequestService) Close(ctx context.Context, actorID, requestID string) (*domain.RequestView, error) {
	return s.mutate(ctx, requestID, func(_ context.Context, req domain.Request) (lifecycle.Decision, error) {
		return s.engine.Close(req, actorID)
	})
}

// History returns the request with its people resolved and its audit trail oldest
// first.
func (s *RequestService) History(ctx context.Context, requestID string) (*domain.RequestHistory, error) {
	requestID = canonicalID(requestID)
	if !isUUID(requestID) {
		return nil, notFound(requestID)
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.mapError(err, requestID)
	}
	trail, err := s.events.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, s.mapError(err, requestID)
	}
	s.checkDrift(*req, trail)

	ids := []string{req.OwnerID, req.CreatedByID}
	for _, ev := range trail {
		ids = append(ids, ev.PerformedByID)
	}
	people, err := s.users.ListByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, s.mapError(err, requestID)
	}
	refs := make(map[string]domain.UserRef, len(people))
	for i := range people {
		refs[people[i].ID] = people[i].Ref()
	}

	performers := make(map[string]domain.UserRef)
	for _, ev := range trail {
		performers[ev.PerformedByID] = refs[ev.PerformedByID]
	}
	return &domain.RequestHistory{
		Request:    *req,
		Owner:      refs[req.OwnerID],
		CreatedBy:  refs[req.CreatedByID],
		Events:     trail,
		Performers: performers,
	}, nil
}

type decideFunc func(ctx context.Context, req domain.Request) (lifecycle.Decision, error)

// mutate locks the request row, lets decide compute the change and persists it.
func (s *RequestService) mutate(ctx context.Context, requestID string, decide decideFunc) (*domain.RequestView, error) {
	requestID = canonicalID(requestID)
	if !isUUID(requestID) {
		return nil, notFound(requestID)
	}

	var (
		decision lifecycle.Decision
		owner    *domain.User
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		decision, err = decide(ctx, *current)
		if err != nil {
			return err
		}
		if err := s.requests.Update(ctx, &decision.Request); err != nil {
			return err
		}
		if err := s.events.Append(ctx, decision.Events); err != nil {
			return err
		}
		owner, err = s.lookupUser(ctx, decision.Request.OwnerID)
		return err
	})
	if err != nil {
		return nil, s.mapError(err, requestID)
	}

	s.afterCommit(ctx, decision)
	view := &domain.RequestView{Request: decision.Request, Owner: owner.Ref()}
	view.Owner.ID = decision.Request.OwnerID
	return view, nil
}

func (s *RequestService) resolveOwner(actorID, requested string) (string, error) {
	switch s.policy {
	case config.OwnerPolicyExplicit:
		return requested, nil
	case config.OwnerPolicyForceSelf:
		if requested != "" && requested != actorID {
			return "", &lifecycle.ValidationError{Issues: []lifecycle.Issue{{Field: "ownerId", Message: "must be the creator"}}}
		}
		return actorID, nil
	default:
		if requested == "" {
			return actorID, nil
		}
		return requested, nil
	}
}

// lookupUser returns nil without error when id names no user.
func (s *RequestService) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	if !isUUID(id) {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (s *RequestService) afterCommit(ctx context.Context, decision lifecycle.Decision) {
	for _, ev := range decision.Events {
		s.metrics.RecordLifecycleEvent(ev.Type)
		if s.dispatcher == nil {
			continue
		}
		if err := s.dispatcher.Publish(ctx, events.FromAudit(ev)); err != nil {
			s.logger.Warn("request event delivery failed",
				zap.String("request_id", ev.RequestID),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err))
		}
	}
	if s.board != nil {
		s.board.Invalidate(ctx)
	}
}

// checkDrift logs when the stored snapshot disagrees with what its trail implies.
func (s *RequestService) checkDrift(req domain.Request, trail []domain.RequestEvent) {
	state, err := lifecycle.Replay(trail)
	if err != nil {
		s.logger.Warn("request audit trail does not replay", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	if state.Status != req.Status || state.OwnerID != req.OwnerID {
		s.logger.Warn("request snapshot drifted from audit trail",
			zap.String("request_id", req.ID),
			zap.String("snapshot_status", string(req.Status)),
			zap.String("replayed_status", string(state.Status)),
			zap.String("snapshot_owner", req.OwnerID),
			zap.String("replayed_owner", state.OwnerID))
	}
}

func (s *RequestService) mapError(err error, requestID string) error {
	var (
		validation *lifecycle.ValidationError
		rule       *lifecycle.RuleError
		domainErr  *apperrors.DomainError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &validation):
		issues := make([]apperrors.FieldIssue, 0, len(validation.Issues))
		for _, issue := range validation.Issues {
			issues = append(issues, apperrors.FieldIssue{Field: issue.Field, Message: issue.Message})
		}
		return apperrors.NewValidationError("request payload is invalid", issues)
	case errors.As(err, &rule):
		return apperrors.NewRuleViolation(string(rule.Code), rule.Error(), rule.Details())
	case errors.Is(err, pgx.ErrNoRows):
		return notFound(requestID)
	default:
		s.logger.Error("request operation failed", zap.String("request_id", requestID), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
}

func notFound(requestID string) error {
	return apperrors.NewNotFound("request", map[string]any{"id": requestID})
}

// canonicalID rewrites any accepted UUID spelling (upper case, braces, urn prefix)
// to the lower-case hyphenated form the stores return. Other input is only trimmed.
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
