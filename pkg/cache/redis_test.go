package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestRunKeys(t *testing.T) {
	assert.Equal(t, "run:status:abc-123", RunStatusKey("abc-123"))
	assert.Equal(t, "run:progress:abc-123", RunProgressKey("abc-123"))
}

func TestMockCache_ImplementsCache(t *testing.T) {
	var c Cache = new(MockCache)
	assert.NotNil(t, c)
}

func TestMockCache_SetAndExists(t *testing.T) {
	mockCache := new(MockCache)
	ctx := context.Background()

	key := RunStatusKey("run-1")
	mockCache.On("Set", ctx, key, mock.Anything).Return(nil)
	mockCache.On("Exists", ctx, key).Return(true, nil)

	err := mockCache.Set(ctx, key, map[string]string{"state": "complete"})
	assert.NoError(t, err)

	ok, err := mockCache.Exists(ctx, key)
	assert.NoError(t, err)
	assert.True(t, ok)

	mockCache.AssertExpectations(t)
}
