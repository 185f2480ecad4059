package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/auth"
	"github.com/spec-kit/opsboard/internal/config"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/events"
	"github.com/spec-kit/opsboard/internal/lifecycle"
	"github.com/spec-kit/opsboard/internal/observability"
	"github.com/spec-kit/opsboard/internal/repository"
	"github.com/spec-kit/opsboard/internal/repository/memory"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

const missingID = "7b0c3a52-5a7e-4d0e-9a43-2f4d6f0b9c11"

type fixture struct {
	store      *memory.Store
	requests   *RequestService
	board      *BoardService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	redis      *miniredis.Miniredis
	anita      domain.User
	ravi       domain.User
	retired    domain.User
}

type fixtureOption func(*RequestDependencies)

func withPolicy(p config.OwnerPolicy) fixtureOption {
	return func(d *RequestDependencies) { d.OwnerPolicy = p }
}

func withClock(now func() time.Time) fixtureOption {
	return func(d *RequestDependencies) { d.Engine = lifecycle.NewEngine(lifecycle.WithClock(now)) }
}

// steppingClock advances one second per reading so every decision gets its own time.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store:      store,
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
		redis:      mr,
	}
	f.anita = f.addUser(t, "Anita", "anita@example.com", true)
	f.ravi = f.addUser(t, "Ravi", "ravi@example.com", true)
	f.retired = f.addUser(t, "Old Timer", "old@example.com", false)

	f.board = NewBoardService(store.Requests(), client, 5*time.Second, "opsboard", nil)
	deps := RequestDependencies{
		TxManager:   store.TxManager(),
		RequestRepo: store.Requests(),
		EventRepo:   store.Events(),
		UserRepo:    store.Users(),
		Engine:      lifecycle.NewEngine(lifecycle.WithClock(steppingClock())),
		Dispatcher:  f.dispatcher,
		Board:       f.board,
		Metrics:     f.metrics,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.requests = NewRequestService(deps)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, active bool) domain.User {
	t.Helper()
	user := domain.User{Name: name, Email: email, PasswordHash: "x", IsActive: active}
	if err := f.store.Users().Upsert(context.Background(), &user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func createInput(ownerID string, urgency domain.Urgency) lifecycle.CreateInput {
	return lifecycle.CreateInput{
		Type:        domain.RequestTypeTransport,
		Description: "  Truck to the north site  ",
		Urgency:     urgency,
		Location:    "Gate 1",
		RequestedBy: "Supervisor Lee",
		OwnerID:     ownerID,
	}
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError %s, got %v", code, err)
	}
	if de.Code != code {
		t.Fatalf("code = %s, want %s (%v)", de.Code, code, err)
	}
	return de
}

func TestCreateDefaultsOwnerToCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.OwnerID != f.anita.ID || req.CreatedByID != f.anita.ID {
		t.Fatalf("owner = %s createdBy = %s", req.OwnerID, req.CreatedByID)
	}
	if req.Status != domain.RequestStatusNew || req.ClosedAt != nil {
		t.Fatalf("unexpected state %+v", req)
	}
	if req.Description != "Truck to the north site" {
		t.Fatalf("description not trimmed: %q", req.Description)
	}

	history, err := f.requests.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Events) != 2 ||
		history.Events[0].Type != domain.EventCreated ||
		history.Events[1].Type != domain.EventOwnerAssigned ||
		history.Events[1].FromValue != nil || *history.Events[1].ToValue != f.anita.ID {
		t.Fatalf("unexpected events %+v", history.Events)
	}
	if history.Owner.Name != "Anita" || history.CreatedBy.Name != "Anita" {
		t.Fatalf("people not resolved: %+v %+v", history.Owner, history.CreatedBy)
	}
	if history.Performers[f.anita.ID].Name != "Anita" {
		t.Fatalf("performers = %+v", history.Performers)
	}
}

func TestCreateIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.requests.Create(ctx, f.anita.ID, createInput(f.ravi.ID, domain.UrgencyLow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := f.requests.Create(ctx, f.anita.ID, createInput(f.ravi.ID, domain.UrgencyLow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("identical payloads must yield distinct requests")
	}
}

func TestCreateRejectsUnusableOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, ownerID := range map[string]string{
		"inactive": f.retired.ID,
		"unknown":  missingID,
		"not uuid": "abc",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.requests.Create(ctx, f.anita.ID, createInput(ownerID, domain.UrgencyNow))
			de := requireCode(t, err, apperrors.CodeInvalidOwner)
			if de.HTTPStatus != 400 || de.Details["ownerId"] != ownerID {
				t.Fatalf("unexpected error %+v", de)
			}
		})
	}

	items, err := f.board.Board(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected creates must not persist: %+v", items)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	in := createInput("", "SOMEDAY")
	in.Description = "ab"
	_, err := f.requests.Create(context.Background(), f.anita.ID, in)
	de := requireCode(t, err, apperrors.CodeValidation)
	issues, ok := de.Details["issues"].([]apperrors.FieldIssue)
	if !ok || len(issues) != 2 {
		t.Fatalf("issues = %#v", de.Details["issues"])
	}
}

func TestOwnerPolicies(t *testing.T) {
	ctx := context.Background()

	explicit := newFixture(t, withPolicy(config.OwnerPolicyExplicit))
	_, err := explicit.requests.Create(ctx, explicit.anita.ID, createInput("", domain.UrgencyNow))
	requireCode(t, err, apperrors.CodeValidation)
	if _, err := explicit.requests.Create(ctx, explicit.anita.ID, createInput(explicit.ravi.ID, domain.UrgencyNow)); err != nil {
		t.Fatalf("explicit owner: %v", err)
	}

	forced := newFixture(t, withPolicy(config.OwnerPolicyForceSelf))
	_, err = forced.requests.Create(ctx, forced.anita.ID, createInput(forced.ravi.ID, domain.UrgencyNow))
	requireCode(t, err, apperrors.CodeValidation)
	req, err := forced.requests.Create(ctx, forced.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("force self: %v", err)
	}
	if req.OwnerID != forced.anita.ID {
		t.Fatalf("owner = %s", req.OwnerID)
	}
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput(f.anita.ID, domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req, err = f.requests.AssignOwner(ctx, f.anita.ID, req.ID, f.ravi.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if req.OwnerID != f.ravi.ID || req.Owner.Name != "Ravi" || req.Status != domain.RequestStatusNew {
		t.Fatalf("assign changed the wrong fields: %+v", req)
	}
	if req, err = f.requests.ChangeStatus(ctx, f.ravi.ID, req.ID, domain.RequestStatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if req, err = f.requests.Close(ctx, f.ravi.ID, req.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if req.Status != domain.RequestStatusDone || req.ClosedAt == nil {
		t.Fatalf("not closed: %+v", req)
	}

	history, err := f.requests.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []domain.RequestEventType{
		domain.EventCreated,
		domain.EventOwnerAssigned,
		domain.EventOwnerAssigned,
		domain.EventStatusChanged,
		domain.EventStatusChanged,
		domain.EventClosed,
	}
	if len(history.Events) != len(want) {
		t.Fatalf("events = %+v", history.Events)
	}
	for i, ev := range history.Events {
		if ev.Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, ev.Type, want[i])
		}
		if i > 0 && !ev.CreatedAt.After(history.Events[i-1].CreatedAt) {
			t.Fatalf("events not strictly ordered at %d", i)
		}
	}
	state, err := lifecycle.Replay(history.Events)
	if err != nil || state.Status != domain.RequestStatusDone || state.OwnerID != f.ravi.ID {
		t.Fatalf("replay = %+v err = %v", state, err)
	}
	if history.Performers[f.ravi.ID].Name != "Ravi" {
		t.Fatalf("performers = %+v", history.Performers)
	}

	_, err = f.requests.AssignOwner(ctx, f.anita.ID, req.ID, f.retired.ID)
	requireCode(t, err, apperrors.CodeCannotAssignDone)
	_, err = f.requests.ChangeStatus(ctx, f.anita.ID, req.ID, domain.RequestStatusWaiting)
	de := requireCode(t, err, apperrors.CodeInvalidTransition)
	if de.Details["from"] != domain.RequestStatusDone || de.Details["to"] != domain.RequestStatusWaiting {
		t.Fatalf("details = %+v", de.Details)
	}

	items, _ := f.board.Board(ctx)
	if len(items) != 0 {
		t.Fatalf("DONE requests must leave the board: %+v", items)
	}
	if got := f.metrics.Snapshot().LifecycleEvents[domain.EventClosed]; got != 1 {
		t.Fatalf("closed events counted = %d", got)
	}
}

func TestInvalidTransitionLeavesRequestUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.requests.ChangeStatus(ctx, f.anita.ID, req.ID, domain.RequestStatusDone)
	requireCode(t, err, apperrors.CodeInvalidTransition)

	history, err := f.requests.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Request.Status != domain.RequestStatusNew || len(history.Events) != 2 {
		t.Fatalf("rejected change leaked: %+v", history)
	}
}

func TestUnknownRequestIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{missingID, "not-a-uuid"} {
		_, err := f.requests.ChangeStatus(ctx, f.anita.ID, id, domain.RequestStatusWaiting)
		requireCode(t, err, apperrors.CodeNotFound)
		_, err = f.requests.AssignOwner(ctx, f.anita.ID, id, f.ravi.ID)
		requireCode(t, err, apperrors.CodeNotFound)
		_, err = f.requests.History(ctx, id)
		requireCode(t, err, apperrors.CodeNotFound)
	}
}

type failingEvents struct {
	repository.RequestEventRepository
	fail bool
}

func (r *failingEvents) Append(ctx context.Context, evs []domain.RequestEvent) error {
	if r.fail {
		return errors.New("disk full")
	}
	return r.RequestEventRepository.Append(ctx, evs)
}

func TestFailedWriteRollsBackSnapshotAndEvents(t *testing.T) {
	flaky := &failingEvents{}
	f := newFixture(t, func(d *RequestDependencies) {
		flaky.RequestEventRepository = d.EventRepo
		d.EventRepo = flaky
	})
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	flaky.fail = true
	_, err = f.requests.ChangeStatus(ctx, f.anita.ID, req.ID, domain.RequestStatusInProgress)
	de := requireCode(t, err, apperrors.CodeInternal)
	if de.HTTPStatus != 500 {
		t.Fatalf("status = %d", de.HTTPStatus)
	}
	_, err = f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyLow))
	requireCode(t, err, apperrors.CodeInternal)
	flaky.fail = false

	history, err := f.requests.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Request.Status != domain.RequestStatusNew || len(history.Events) != 2 {
		t.Fatalf("partial write survived: status=%s events=%d", history.Request.Status, len(history.Events))
	}
	items, _ := f.board.Board(ctx)
	if len(items) != 1 {
		t.Fatalf("failed create persisted: %+v", items)
	}
}

func TestConcurrentChangesSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.requests.ChangeStatus(ctx, f.anita.ID, req.ID, domain.RequestStatusInProgress)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.HasCode(err, apperrors.CodeInvalidTransition):
			rejected++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("ok = %d rejected = %d", ok, rejected)
	}
}

func TestBoardOrderCacheAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low, _ := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyLow))
	nowFirst, _ := f.requests.Create(ctx, f.anita.ID, createInput(f.ravi.ID, domain.UrgencyNow))
	today, _ := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyToday))
	nowSecond, _ := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))

	items, err := f.board.Board(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	wantOrder := []string{nowFirst.ID, nowSecond.ID, today.ID, low.ID}
	for i, item := range items {
		if item.ID != wantOrder[i] {
			t.Fatalf("position %d = %s, want %s", i, item.ID, wantOrder[i])
		}
	}
	if items[0].Owner.Name != "Ravi" {
		t.Fatalf("owner not joined: %+v", items[0].Owner)
	}
	// Four creates retired four generations.
	if !f.redis.Exists("opsboard:board:4") {
		t.Fatalf("board snapshot not cached")
	}

	cached, err := f.board.Board(ctx)
	if err != nil || len(cached) != 4 || cached[0].ID != nowFirst.ID {
		t.Fatalf("cached board = %+v err = %v", cached, err)
	}

	if _, err := f.requests.Close(ctx, f.anita.ID, low.ID); err == nil {
		t.Fatalf("NEW cannot jump to DONE")
	}
	if _, err := f.requests.ChangeStatus(ctx, f.anita.ID, low.ID, domain.RequestStatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if f.redis.Exists("opsboard:board:4") {
		t.Fatalf("mutation must invalidate the board cache")
	}
	if gen, _ := f.redis.Get("opsboard:board:gen"); gen != "5" {
		t.Fatalf("generation = %q, want 5", gen)
	}
}

// staleListing returns rows read before after runs, like a board read that races a commit.
type staleListing struct {
	repository.RequestRepository
	after func()
}

func (r staleListing) ListActive(ctx context.Context) ([]domain.RequestView, error) {
	rows, err := r.RequestRepository.ListActive(ctx)
	if r.after != nil {
		r.after()
	}
	return rows, err
}

func TestBoardReadRacingACommitCannotPinStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	racing := NewBoardService(staleListing{
		RequestRepository: f.store.Requests(),
		after: func() {
			if _, err := f.requests.ChangeStatus(ctx, f.anita.ID, req.ID, domain.RequestStatusInProgress); err != nil {
				t.Errorf("start: %v", err)
			}
		},
	}, client, 5*time.Second, "opsboard", nil)

	stale, err := racing.Board(ctx)
	if err != nil {
		t.Fatalf("racing board: %v", err)
	}
	if len(stale) != 1 || stale[0].Status != domain.RequestStatusNew {
		t.Fatalf("racing read = %+v", stale)
	}

	fresh, err := f.board.Board(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(fresh) != 1 || fresh[0].Status != domain.RequestStatusInProgress {
		t.Fatalf("board after commit served a stale snapshot: %+v", fresh)
	}
}

func TestCommittedEventsReachDispatcher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []events.EventType
	NewNotificationService(f.dispatcher, nil, zap.NewNop()).RegisterHandlers()
	for _, et := range events.AllEventTypes {
		f.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, e.Type)
			return nil
		})
	}

	if _, err := f.requests.Create(ctx, f.anita.ID, createInput("", domain.UrgencyNow)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(seen) != 2 || seen[0] != events.EventRequestCreated || seen[1] != events.EventRequestOwnerAssigned {
		t.Fatalf("seen = %v", seen)
	}

	_, _ = f.requests.Create(ctx, f.anita.ID, createInput(f.retired.ID, domain.UrgencyNow))
	if len(seen) != 2 {
		t.Fatalf("rejected mutation published events: %v", seen)
	}
}

type recordingPublisher struct {
	published []events.Event
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.published = append(p.published, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestNotificationServiceForwardsToBroker(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	pub := &recordingPublisher{}
	NewNotificationService(d, pub, zap.NewNop()).RegisterHandlers()

	if err := d.Publish(context.Background(), events.Event{ID: "e1", Type: events.EventRequestClosed}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].ID != "e1" {
		t.Fatalf("published = %+v", pub.published)
	}

	pub.err = errors.New("broker down")
	if err := d.Publish(context.Background(), events.Event{ID: "e2", Type: events.EventRequestCreated}); err == nil {
		t.Fatalf("broker failure should surface to the dispatcher")
	}
}

func TestAuthServiceLoginAndLogout(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	hash, err := auth.HashPassword("Password@123", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	for _, u := range []domain.User{
		{Name: "Anita", Email: "anita@example.com", PasswordHash: hash, IsActive: true},
		{Name: "Old Timer", Email: "old@example.com", PasswordHash: hash, IsActive: false},
	} {
		u := u
		if err := store.Users().Upsert(ctx, &u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tokens := auth.NewTokenManager("secret", time.Hour)
	revoker := auth.NewMemoryTokenRevoker()
	svc := NewAuthService(AuthDependencies{UserRepo: store.Users(), TokenManager: tokens, Revoker: revoker})

	user, token, err := svc.Login(ctx, "  Anita@Example.com ", "Password@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Name != "Anita" || token.UserID != user.ID {
		t.Fatalf("user = %+v token = %+v", user, token)
	}

	for name, creds := range map[string][2]string{
		"wrong password": {"anita@example.com", "nope"},
		"unknown email":  {"ghost@example.com", "Password@123"},
		"inactive":       {"old@example.com", "Password@123"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, creds[0], creds[1])
			de := requireCode(t, err, apperrors.CodeInvalidCredentials)
			if de.HTTPStatus != 401 {
				t.Fatalf("status = %d", de.HTTPStatus)
			}
		})
	}

	claims, err := tokens.ParseToken(token.Value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if revoked, _ := revoker.IsRevoked(ctx, claims.ID); !revoked {
		t.Fatalf("token not revoked")
	}

	users, err := svc.ListActiveUsers(ctx)
	if err != nil || len(users) != 1 || users[0].Email != "anita@example.com" {
		t.Fatalf("users = %+v err = %v", users, err)
	}
}

func TestHistoryStaysOrderedWithFrozenClock(t *testing.T) {
	frozen := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, withClock(func() time.Time { return frozen }))
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput(f.anita.ID, domain.UrgencyNow))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.requests.AssignOwner(ctx, f.anita.ID, req.ID, f.ravi.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.requests.ChangeStatus(ctx, f.ravi.ID, req.ID, domain.RequestStatusWaiting); err != nil {
		t.Fatalf("to waiting: %v", err)
	}

	history, err := f.requests.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []domain.RequestEventType{
		domain.EventCreated,
		domain.EventOwnerAssigned,
		domain.EventOwnerAssigned,
		domain.EventStatusChanged,
	}
	if len(history.Events) != len(want) {
		t.Fatalf("events = %+v", history.Events)
	}
	for i, ev := range history.Events {
		if ev.Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, ev.Type, want[i])
		}
		if i > 0 && !ev.CreatedAt.After(history.Events[i-1].CreatedAt) {
			t.Fatalf("events %d and %d not strictly ordered: %s, %s", i-1, i, history.Events[i-1].CreatedAt, ev.CreatedAt)
		}
	}
	if to := history.Events[2].ToValue; to == nil || *to != f.ravi.ID {
		t.Fatalf("last assignment = %v, want %s", to, f.ravi.ID)
	}

	state, err := lifecycle.Replay(history.Events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if state.OwnerID != history.Request.OwnerID || state.Status != history.Request.Status {
		t.Fatalf("replay = %+v, snapshot owner %s status %s", state, history.Request.OwnerID, history.Request.Status)
	}
}

func TestOwnerIDsAcceptAnyUUIDSpelling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, f.anita.ID, createInput(strings.ToUpper(f.ravi.ID), domain.UrgencyToday))
	if err != nil {
		t.Fatalf("create with upper-case owner: %v", err)
	}
	if req.OwnerID != f.ravi.ID || req.Owner.Name != "Ravi" {
		t.Fatalf("owner = %s (%s)", req.OwnerID, req.Owner.Name)
	}

	assigned, err := f.requests.AssignOwner(ctx, f.ravi.ID, "{"+strings.ToUpper(req.ID)+"}", "urn:uuid:"+f.anita.ID)
	if err != nil {
		t.Fatalf("assign with braced request id and urn owner: %v", err)
	}
	if assigned.OwnerID != f.anita.ID {
		t.Fatalf("owner = %s, want %s", assigned.OwnerID, f.anita.ID)
	}

	history, err := f.requests.History(ctx, strings.ToUpper(req.ID))
	if err != nil {
		t.Fatalf("history with upper-case id: %v", err)
	}
	if last := history.Events[len(history.Events)-1]; last.ToValue == nil || *last.ToValue != f.anita.ID {
		t.Fatalf("assignment recorded as %v", last.ToValue)
	}
}
