package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCompliance(t *testing.T) {
	cases := []struct {
		name    string
		factory func(t *testing.T) Store
	}{
		{
			name: "memory",
			factory: func(t *testing.T) Store {
				return NewMemoryStore(time.Hour)
			},
		},
		{
			name: "redis",
			factory: func(t *testing.T) Store {
				t.Helper()
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() {
					_ = client.Close()
					mr.Close()
				})
				return NewRedisStore(client, time.Hour, "test")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runStoreContract(t, tc.factory(t))
		})
	}
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := New("octocat", "gho_token")
	require.NotEmpty(t, s.ID)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Login, got.Login)
	assert.Equal(t, s.AccessToken, got.AccessToken)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestNewSessionIDsAreUnique(t *testing.T) {
	a, b := New("a", "t"), New("a", "t")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	s := New("octocat", "token")
	require.NoError(t, store.Save(context.Background(), s))

	clock = clock.Add(2 * time.Minute)
	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Minute, "")
	s := New("octocat", "token")
	require.NoError(t, store.Save(context.Background(), s))
	assert.True(t, mr.Exists("pullmate:session:"+s.ID))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr()+"/0", time.Hour)
	require.NoError(t, err)
	defer store.Close()

	_, err = NewRedisStoreFromURL(context.Background(), "::not a url", time.Hour)
	assert.Error(t, err)
}
