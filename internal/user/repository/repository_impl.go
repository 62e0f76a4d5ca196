package repository

import (
	"context"

	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"github.com/smallbiznis/kredible/pkg/docstore"
	"gorm.io/gorm"
)

type repo struct {
	users docstore.Collection[userdomain.User]
}

func Provide(db *gorm.DB) userdomain.Repository {
	return &repo{users: docstore.NewCollection[userdomain.User](db)}
}

func (r *repo) Insert(ctx context.Context, user *userdomain.User) error {
	return r.users.Create(ctx, user)
}

func (r *repo) FindByWalletAddress(ctx context.Context, walletAddress string) (*userdomain.User, error) {
	return r.users.FindOne(ctx, docstore.Filter{"wallet_address": walletAddress})
}

func (r *repo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.users.Update(ctx, id, fields)
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	return r.users.Count(ctx, nil)
}
