package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  querylogdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  querylogdomain.Repository
}

func New(p Params) querylogdomain.Service {
	return &Service{
		log:   p.Log.Named("querylog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req querylogdomain.RecordRequest) (*querylogdomain.QueryLog, error) {
	platformID := strings.TrimSpace(req.PlatformID)
	if platformID == "" {
		return nil, querylogdomain.ErrInvalidPlatformID
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		return nil, querylogdomain.ErrInvalidWalletAddress
	}

	now := s.clock.Now()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}

	entry := &querylogdomain.QueryLog{
		ID:            s.genID.Generate().String(),
		PlatformID:    platformID,
		WalletAddress: wallet,
		Timestamp:     ts.UTC(),
		Score:         req.Score,
		CreatedAt:     now,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) CountByPlatform(ctx context.Context, platformID string) (int64, error) {
	return s.repo.CountByPlatform(ctx, strings.TrimSpace(platformID))
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.repo.CountSince(ctx, since.UTC())
}

func (s *Service) ListByPlatform(ctx context.Context, platformID string, limit int) ([]*querylogdomain.QueryLog, error) {
	return s.repo.ListByPlatform(ctx, strings.TrimSpace(platformID), limit)
}
