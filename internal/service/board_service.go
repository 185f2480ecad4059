package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/board"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/repository"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// BoardService serves the ordered list of active requests, optionally through a
// short-lived Redis snapshot. Snapshots are keyed by a generation counter that every
// invalidation bumps, so a read that loaded rows before a commit can only write to
// a generation nobody reads any more.
type BoardService struct {
	requests repository.RequestRepository
	cache    *redis.Client
	ttl      time.Duration
	prefix   string
	logger   *zap.Logger
}

// NewBoardService builds the service. A nil cache or a non-positive ttl disables caching.
func NewBoardService(requests repository.RequestRepository, cache *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		cache = nil
	}
	return &BoardService{
		requests: requests,
		cache:    cache,
		ttl:      ttl,
		prefix:   prefix + ":board",
		logger:   logger,
	}
}

// Board returns active requests by urgency, then age, each with its owner.
func (s *BoardService) Board(ctx context.Context) ([]domain.RequestView, error) {
	generation, cacheable := s.generation(ctx)
	if cacheable {
		if items, ok := s.readCache(ctx, generation); ok {
			return items, nil
		}
	}

	rows, err := s.requests.ListActive(ctx)
	if err != nil {
		s.logger.Error("load board failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	items := board.ProjectItems(rows)
	if cacheable {
		s.writeCache(ctx, generation, items)
	}
	return items, nil
}

// Invalidate retires the current snapshot generation.
func (s *BoardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	next, err := s.cache.Incr(ctx, s.generationKey()).Result()
	if err != nil {
		s.logger.Warn("board cache invalidation failed", zap.Error(err))
		return
	}
	if err := s.cache.Del(ctx, s.snapshotKey(next-1)).Err(); err != nil {
		s.logger.Warn("board cache cleanup failed", zap.Error(err))
	}
}

// generation reports the current snapshot generation. false means the cache is
// disabled or unreadable and must be bypassed for this call.
func (s *BoardService) generation(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	generation, err := s.cache.Get(ctx, s.generationKey()).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		s.logger.Warn("board cache generation read failed", zap.Error(err))
		return 0, false
	}
	return generation, true
}

func (s *BoardService) generationKey() string {
	return s.prefix + ":gen"
}

func (s *BoardService) snapshotKey(generation int64) string {
	return s.prefix + ":" + strconv.FormatInt(generation, 10)
}

func (s *BoardService) readCache(ctx context.Context, generation int64) ([]domain.RequestView, bool) {
	raw, err := s.cache.Get(ctx, s.snapshotKey(generation)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("board cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var items []domain.RequestView
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("board cache entry is corrupt", zap.Error(err))
		return nil, false
	}
	return items, true
}

func (s *BoardService) writeCache(ctx context.Context, generation int64, items []domain.RequestView) {
	raw, err := json.Marshal(items)
	if err != nil {
		s.logger.Warn("board cache encode failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, s.snapshotKey(generation), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("board cache write failed", zap.Error(err))
	}
}
