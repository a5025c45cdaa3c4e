package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

func TestTabStorage(t *testing.T) {
	s := NewTabStorage()

	_, ok := s.Get("access_token")
	assert.False(t, ok)

	s.Set("access_token", "tok")
	s.Set("nonce", "n")
	v, ok := s.Get("access_token")
	require.True(t, ok)
	assert.Equal(t, "tok", v)
	assert.Equal(t, []string{"access_token", "nonce"}, s.Keys())

	s.Remove("nonce")
	assert.Equal(t, []string{"access_token"}, s.Keys())

	s.Clear()
	assert.Empty(t, s.Keys())
}

func TestSharedSession_Flag(t *testing.T) {
	ctx := context.Background()
	s := NewSharedSession()
	defer s.Close()

	ok, err := s.IsAuthorized(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkAuthorized(ctx))
	ok, _ = s.IsAuthorized(ctx)
	assert.True(t, ok)

	require.NoError(t, s.ClearAuthorized(ctx))
	ok, _ = s.IsAuthorized(ctx)
	assert.False(t, ok)
}

func TestSharedSession_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSharedSession()
	defer s.Close()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	sig := domainauth.SessionSignal{Type: domainauth.SignalSessionEnded, Origin: "tab-a", At: time.Now()}
	require.NoError(t, s.Publish(ctx, sig))

	select {
	case got := <-ch:
		assert.Equal(t, "tab-a", got.Origin)
	case <-time.After(time.Second):
		t.Fatal("expected signal")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}
