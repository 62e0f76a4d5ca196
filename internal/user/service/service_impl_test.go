package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/testutil"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"github.com/smallbiznis/kredible/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var wallet = "G" + strings.Repeat("A", 55)

func setup(t *testing.T) (userdomain.Service, *clock.FakeClock) {
	t.Helper()
	return setupWithRepo(t, nil)
}

func setupWithRepo(t *testing.T, wrap func(userdomain.Repository) userdomain.Repository) (userdomain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.NewDB(t, &userdomain.User{})
	clk := testutil.FixedClock()
	repo := repository.Provide(db)
	if wrap != nil {
		repo = wrap(repo)
	}
	svc := New(Params{
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: clk,
		Repo:  repo,
	})
	return svc, clk
}

// gatedWalletRepo releases FindByWalletAddress callers only once every
// expected caller has completed its lookup.
type gatedWalletRepo struct {
	userdomain.Repository
	arrived sync.WaitGroup
	release chan struct{}
}

func newGatedWalletRepo(inner userdomain.Repository, callers int) *gatedWalletRepo {
	r := &gatedWalletRepo{Repository: inner, release: make(chan struct{})}
	r.arrived.Add(callers)
	go func() {
		r.arrived.Wait()
		close(r.release)
	}()
	return r
}

func (r *gatedWalletRepo) FindByWalletAddress(ctx context.Context, walletAddress string) (*userdomain.User, error) {
	found, err := r.Repository.FindByWalletAddress(ctx, walletAddress)
	r.arrived.Done()
	select {
	case <-r.release:
	case <-time.After(5 * time.Second):
	}
	return found, err
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	name := "Ada"
	user, err := svc.Create(ctx, userdomain.CreateRequest{WalletAddress: wallet, Name: &name})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.Documents)
	assert.Empty(t, user.Activity)

	stored, err := svc.GetByWalletAddress(ctx, wallet)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, user.ID, stored.ID)
	require.NotNil(t, stored.Name)
	assert.Equal(t, "Ada", *stored.Name)

	_, err = svc.Create(ctx, userdomain.CreateRequest{WalletAddress: wallet})
	assert.ErrorIs(t, err, userdomain.ErrAlreadyExists)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestConcurrentCreateSameWalletBothSucceed(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupWithRepo(t, func(inner userdomain.Repository) userdomain.Repository {
		return newGatedWalletRepo(inner, 2)
	})

	var wg sync.WaitGroup
	users := make([]*userdomain.User, 2)
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i], errs[i] = svc.Create(ctx, userdomain.CreateRequest{WalletAddress: wallet})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.NotEqual(t, users[0].ID, users[1].ID)
	assert.Equal(t, wallet, users[0].WalletAddress)
	assert.Equal(t, wallet, users[1].WalletAddress)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCreateUserRejectsMalformedWallet(t *testing.T) {
	svc, _ := setup(t)
	for _, w := range []string{"", "GABC", "g" + strings.Repeat("A", 55), "G" + strings.Repeat("1", 55)} {
		_, err := svc.Create(context.Background(), userdomain.CreateRequest{WalletAddress: w})
		assert.ErrorIs(t, err, userdomain.ErrInvalidWalletAddress, w)
	}
}

func TestGetUnknownWalletReturnsNil(t *testing.T) {
	svc, _ := setup(t)
	user, err := svc.GetByWalletAddress(context.Background(), wallet)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAddDocumentAndActivity(t *testing.T) {
	ctx := context.Background()
	svc, clk := setup(t)
	_, err := svc.Create(ctx, userdomain.CreateRequest{WalletAddress: wallet})
	require.NoError(t, err)

	doc, err := svc.AddDocument(ctx, wallet, userdomain.DocumentRequest{Type: "passport", URL: "https://files.example/p.pdf"})
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), doc.UploadedAt)

	clk.Advance(time.Minute)
	_, err = svc.AddActivity(ctx, wallet, userdomain.ActivityRequest{Type: "login"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.AddActivity(ctx, wallet, userdomain.ActivityRequest{Type: "kyc", Details: map[string]any{"step": "upload"}})
	require.NoError(t, err)

	activity, err := svc.ListActivity(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, "login", activity[0].Type)
	assert.Equal(t, "kyc", activity[1].Type)
	assert.True(t, activity[1].Timestamp.After(activity[0].Timestamp))
	assert.Equal(t, "upload", activity[1].Details["step"])

	user, err := svc.GetByWalletAddress(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, user.Documents, 1)
	assert.Equal(t, "passport", user.Documents[0].Type)
}

func TestAppendsRequireUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	_, err := svc.AddDocument(ctx, wallet, userdomain.DocumentRequest{Type: "id", URL: "https://x.example/a"})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)

	_, err = svc.AddActivity(ctx, wallet, userdomain.ActivityRequest{Type: "login"})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)

	_, err = svc.ListActivity(ctx, wallet)
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	_, err := svc.Create(ctx, userdomain.CreateRequest{WalletAddress: wallet})
	require.NoError(t, err)

	email := "ada@example.com"
	updated, err := svc.Update(ctx, wallet, userdomain.UpdateRequest{Email: &email})
	require.NoError(t, err)
	require.NotNil(t, updated.Email)
	assert.Equal(t, email, *updated.Email)

	stored, err := svc.GetByWalletAddress(ctx, wallet)
	require.NoError(t, err)
	require.NotNil(t, stored.Email)
	assert.Equal(t, email, *stored.Email)
}
