package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock ports
type MockSubscriptionStore struct {
	mock.Mock
}

func (m *MockSubscriptionStore) Get(ctx context.Context, userID domain.UserID) (*domain.UserSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserSubscription), args.Error(1)
}

type MockVideoCatalog struct {
	mock.Mock
}

func (m *MockVideoCatalog) RequiredTier(ctx context.Context, videoID domain.VideoID) (domain.SubscriptionType, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(domain.SubscriptionType), args.Error(1)
}

type MockGeolocationResolver struct {
	mock.Mock
}

func (m *MockGeolocationResolver) Resolve(ctx context.Context, ip string) (domain.GeolocationInfo, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(domain.GeolocationInfo), args.Error(1)
}

type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) Bind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, cap int) error {
	args := m.Called(ctx, userID, deviceID, cap)
	return args.Error(0)
}

func (m *MockDeviceRepository) Unbind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

func (m *MockDeviceRepository) ListBound(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeviceID), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) ReserveSlot(ctx context.Context, session *domain.StreamSession, limit int) error {
	args := m.Called(ctx, session, limit)
	return args.Error(0)
}

func (m *MockSessionRepository) Commit(ctx context.Context, id domain.SessionID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.StreamSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StreamSession), args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id domain.SessionID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) End(ctx context.Context, id domain.SessionID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) ListActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StreamSession), args.Error(1)
}

func (m *MockSessionRepository) ListLive(ctx context.Context) ([]*domain.StreamSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StreamSession), args.Error(1)
}

type validatorFixture struct {
	tokens        ports.TokenService
	subscriptions *MockSubscriptionStore
	catalog       *MockVideoCatalog
	resolver      *MockGeolocationResolver
	devices       *MockDeviceRepository
	sessions      *MockSessionRepository
}

func newValidatorFixture(t *testing.T, cfg ValidatorConfig) (*validatorFixture, ports.AccessValidator) {
	t.Helper()

	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	f := &validatorFixture{
		tokens:        tokens,
		subscriptions: new(MockSubscriptionStore),
		catalog:       new(MockVideoCatalog),
		resolver:      new(MockGeolocationResolver),
		devices:       new(MockDeviceRepository),
		sessions:      new(MockSessionRepository),
	}

	validator := NewAccessValidator(
		cfg,
		tokens,
		f.subscriptions,
		f.catalog,
		f.resolver,
		f.devices,
		f.sessions,
		nil,
		zap.NewNop().Sugar(),
	)
	return f, validator
}

func (f *validatorFixture) issue(t *testing.T) (string, *domain.AccessToken) {
	t.Helper()
	token, tokenString, err := f.tokens.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)
	return tokenString, token
}

func premiumSubscription() *domain.UserSubscription {
	return &domain.UserSubscription{
		UserID:               "user-1",
		Type:                 domain.SubscriptionPremium,
		ExpiresAt:            time.Now().Add(30 * 24 * time.Hour),
		MaxConcurrentStreams: 2,
	}
}

func TestValidator_GrantsAccess(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, issued := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(premiumSubscription(), nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.sessions.On("ReserveSlot", mock.Anything, mock.Anything, 2).Return(nil)

	result, token, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Reason)
	assert.Greater(t, result.AllowedDuration, time.Duration(0))
	assert.Equal(t, issued.SessionID, token.SessionID)

	// The reservation carries the token's session id in requested state.
	reserved := f.sessions.Calls[0].Arguments.Get(1).(*domain.StreamSession)
	assert.Equal(t, issued.SessionID, reserved.SessionID)
	assert.Equal(t, domain.SessionRequested, reserved.Status)
}

func TestValidator_RejectsGarbageToken(t *testing.T) {
	_, validator := newValidatorFixture(t, ValidatorConfig{})

	result, _, err := validator.Validate(context.Background(), "not-a-token", "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonInvalidToken, result.Reason)
}

func TestValidator_RejectsTokenForDifferentVideo(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-other", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonInvalidToken, result.Reason)
}

// Expiry dominates every later step: even a user whose subscription is
// also lapsed sees token_expired, because the pipeline never gets past
// the expiry step.
func TestValidator_ExpiredTokenDominates(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})

	shortTokens, err := NewTokenService("test-secret", time.Millisecond)
	require.NoError(t, err)
	_, tokenString, err := shortTokens.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonTokenExpired, result.Reason)
	f.subscriptions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidator_RejectsMissingSubscription(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(nil, domain.ErrSubscriptionNotFound)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonSubscriptionExpired, result.Reason)
}

func TestValidator_RejectsExpiredSubscription(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	sub := premiumSubscription()
	sub.ExpiresAt = time.Now().Add(-time.Hour)
	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(sub, nil)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonSubscriptionExpired, result.Reason)
}

func TestValidator_RejectsInsufficientTier(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	sub := premiumSubscription()
	sub.Type = domain.SubscriptionFree
	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(sub, nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionPremium, nil)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonInsufficientTier, result.Reason)
}

func TestValidator_GeofenceRejectsDisallowedRegion(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{EnableGeoblocking: true})
	tokenString, _ := f.issue(t)

	sub := premiumSubscription()
	sub.AllowedRegions = []string{"DE", "FR"}
	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(sub, nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.resolver.On("Resolve", mock.Anything, "203.0.113.7").Return(domain.GeolocationInfo{Country: "US", Region: "California"}, nil)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonRegionNotAllowed, result.Reason)
	f.sessions.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidator_GeofenceAllowsMatchingCountry(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{EnableGeoblocking: true})
	tokenString, _ := f.issue(t)

	sub := premiumSubscription()
	sub.AllowedRegions = []string{"us"}
	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(sub, nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.resolver.On("Resolve", mock.Anything, "203.0.113.7").Return(domain.GeolocationInfo{Country: "US"}, nil)
	f.sessions.On("ReserveSlot", mock.Anything, mock.Anything, 2).Return(nil)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.True(t, result.Valid)
}

func TestValidator_GeofenceFailOpenAddsRestriction(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{EnableGeoblocking: true})
	tokenString, _ := f.issue(t)

	sub := premiumSubscription()
	sub.AllowedRegions = []string{"US"}
	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(sub, nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.resolver.On("Resolve", mock.Anything, "203.0.113.7").Return(domain.DefaultGeolocation(), domain.ErrGeolocationFailed)
	f.sessions.On("ReserveSlot", mock.Anything, mock.Anything, 2).Return(nil)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Contains(t, result.Restrictions, domain.RestrictionGeolocationUnresolved)
}

func TestValidator_GeofenceFailClosedRejects(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{EnableGeoblocking: true, GeoFailClosed: true})
	tokenString, _ := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(premiumSubscription(), nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.resolver.On("Resolve", mock.Anything, "203.0.113.7").Return(domain.DefaultGeolocation(), domain.ErrGeolocationFailed)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonRegionNotAllowed, result.Reason)
}

func TestValidator_RejectsDeviceLimit(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{EnableDeviceBinding: true, DeviceBindingCap: 2})
	tokenString, _ := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(premiumSubscription(), nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.devices.On("Bind", mock.Anything, domain.UserID("user-1"), domain.DeviceID("device-1"), 2).Return(domain.ErrDeviceLimitReached)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonDeviceLimitExceeded, result.Reason)
	f.sessions.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidator_RejectsWhenSlotsExhausted(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(premiumSubscription(), nil)
	f.catalog.On("RequiredTier", mock.Anything, domain.VideoID("video-1")).Return(domain.SubscriptionFree, nil)
	f.sessions.On("ReserveSlot", mock.Anything, mock.Anything, 2).Return(domain.ErrSlotLimitReached)

	result, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, domain.ReasonMaxStreamsReached, result.Reason)
}

func TestValidator_InternalErrorAborts(t *testing.T) {
	f, validator := newValidatorFixture(t, ValidatorConfig{})
	tokenString, _ := f.issue(t)

	f.subscriptions.On("Get", mock.Anything, domain.UserID("user-1")).Return(nil, errors.New("store down"))

	_, _, err := validator.Validate(context.Background(), tokenString, "video-1", testDevice(), "203.0.113.7")
	assert.Error(t, err)
}
