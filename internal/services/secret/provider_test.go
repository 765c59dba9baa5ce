package secret

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/testutil/mocks"
)

var testPaths = Paths{APISecret: "cloudpayments/api-secret", PublicID: "cloudpayments/public-id"}

func TestProvider_Load(t *testing.T) {
	store := new(mocks.MockSecretManager)
	store.On("GetSecret", mock.Anything, testPaths.APISecret).Return(&ports.Secret{Value: "sec"}, nil)
	store.On("GetSecret", mock.Anything, testPaths.PublicID).Return(&ports.Secret{Value: "pk_live"}, nil)

	p := NewProvider(store, testPaths, "pk_fallback", zap.NewNop())
	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, "sec", p.APISecret())
	assert.Equal(t, "pk_live", p.PublicID())
	assert.False(t, p.LoadedAt().IsZero())
	store.AssertExpectations(t)
}

func TestProvider_MissingSecretsKeepFallbacks(t *testing.T) {
	store := new(mocks.MockSecretManager)
	store.On("GetSecret", mock.Anything, mock.Anything).Return(nil, errors.New("secret not found"))

	p := NewProvider(store, testPaths, "pk_fallback", zap.NewNop())
	require.NoError(t, p.Load(context.Background()))

	assert.Empty(t, p.APISecret())
	assert.Equal(t, "pk_fallback", p.PublicID())
}

func TestProvider_RefreshPicksUpRotation(t *testing.T) {
	store := new(mocks.MockSecretManager)
	store.On("GetSecret", mock.Anything, testPaths.APISecret).Return(&ports.Secret{Value: "old"}, nil).Once()
	store.On("GetSecret", mock.Anything, testPaths.APISecret).Return(&ports.Secret{Value: "new"}, nil)
	store.On("GetSecret", mock.Anything, testPaths.PublicID).Return(nil, errors.New("absent"))

	p := NewProvider(store, testPaths, "pk", zap.NewNop())
	require.NoError(t, p.Load(context.Background()))
	require.Equal(t, "old", p.APISecret())

	require.NoError(t, p.StartRefresh(time.Second))
	defer func() { _ = p.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return p.APISecret() == "new" }, 5*time.Second, 50*time.Millisecond)
}

func TestProvider_ZeroIntervalDisablesRefresh(t *testing.T) {
	p := NewProvider(new(mocks.MockSecretManager), testPaths, "pk", zap.NewNop())
	require.NoError(t, p.StartRefresh(0))
	assert.Nil(t, p.cron)
	assert.NoError(t, p.Stop(context.Background()))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("s", "pk")
	assert.Equal(t, "s", p.APISecret())
	assert.Equal(t, "pk", p.PublicID())
	require.NoError(t, p.Load(context.Background()))
}
