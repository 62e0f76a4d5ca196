package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  userdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  userdomain.Repository
}

func New(p Params) userdomain.Service {
	return &Service{
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Create registers a wallet. The duplicate check is a read before the write.
func (s *Service) Create(ctx context.Context, req userdomain.CreateRequest) (*userdomain.User, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if !userdomain.ValidWalletAddress(wallet) {
		return nil, userdomain.ErrInvalidWalletAddress
	}

	existing, err := s.repo.FindByWalletAddress(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, userdomain.ErrAlreadyExists
	}

	now := s.clock.Now()
	user := &userdomain.User{
		ID:            s.genID.Generate().String(),
		WalletAddress: wallet,
		Name:          trimmedOrNil(req.Name),
		Email:         trimmedOrNil(req.Email),
		Documents:     datatypes.NewJSONSlice([]userdomain.Document{}),
		Activity:      datatypes.NewJSONSlice([]userdomain.Activity{}),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) GetByWalletAddress(ctx context.Context, walletAddress string) (*userdomain.User, error) {
	wallet := strings.TrimSpace(walletAddress)
	if wallet == "" {
		return nil, nil
	}
	return s.repo.FindByWalletAddress(ctx, wallet)
}

func (s *Service) Update(ctx context.Context, walletAddress string, req userdomain.UpdateRequest) (*userdomain.User, error) {
	user, err := s.mustGet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		user.Name = trimmedOrNil(req.Name)
		fields["name"] = user.Name
	}
	if req.Email != nil {
		user.Email = trimmedOrNil(req.Email)
		fields["email"] = user.Email
	}
	if len(fields) == 0 {
		return user, nil
	}

	user.UpdatedAt = s.clock.Now()
	fields["updated_at"] = user.UpdatedAt
	if err := s.repo.Update(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	return user, nil
}

// AddDocument appends to the stored list by rewriting it, so concurrent
// appends to the same user can drop one another.
func (s *Service) AddDocument(ctx context.Context, walletAddress string, req userdomain.DocumentRequest) (*userdomain.Document, error) {
	docType := strings.TrimSpace(req.Type)
	url := strings.TrimSpace(req.URL)
	if docType == "" || url == "" {
		return nil, userdomain.ErrInvalidDocument
	}

	user, err := s.mustGet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	doc := userdomain.Document{Type: docType, URL: url, UploadedAt: now}
	if req.UploadedAt != nil && !req.UploadedAt.IsZero() {
		doc.UploadedAt = req.UploadedAt.UTC()
	}

	docs := append(append([]userdomain.Document{}, user.Documents...), doc)
	if err := s.repo.Update(ctx, user.ID, map[string]any{
		"documents":  datatypes.NewJSONSlice(docs),
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Service) AddActivity(ctx context.Context, walletAddress string, req userdomain.ActivityRequest) (*userdomain.Activity, error) {
	activityType := strings.TrimSpace(req.Type)
	if activityType == "" {
		return nil, userdomain.ErrInvalidActivity
	}

	user, err := s.mustGet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	activity := userdomain.Activity{Type: activityType, Details: req.Details, Timestamp: now}
	activities := append(append([]userdomain.Activity{}, user.Activity...), activity)
	if err := s.repo.Update(ctx, user.ID, map[string]any{
		"activity":   datatypes.NewJSONSlice(activities),
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Service) ListActivity(ctx context.Context, walletAddress string) ([]userdomain.Activity, error) {
	user, err := s.mustGet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if user.Activity == nil {
		return []userdomain.Activity{}, nil
	}
	return []userdomain.Activity(user.Activity), nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) mustGet(ctx context.Context, walletAddress string) (*userdomain.User, error) {
	user, err := s.GetByWalletAddress(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
