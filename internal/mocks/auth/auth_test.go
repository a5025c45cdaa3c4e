package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

func TestFakeOIDCClient_EmitsInRegistrationOrder(t *testing.T) {
	f := NewFakeOIDCClient()
	var got []string
	f.OnEvent(func(domainauth.Event) { got = append(got, "first") })
	unsubscribe := f.OnEvent(func(domainauth.Event) { got = append(got, "second") })

	f.Emit(domainauth.Event{Type: domainauth.EventTokenReceived})
	unsubscribe()
	f.Emit(domainauth.Event{Type: domainauth.EventTokenReceived})

	assert.Equal(t, []string{"first", "second", "first"}, got)
	assert.Equal(t, 1, f.HandlerCount())
}

func TestFakeOIDCClient_DiscoveryEvents(t *testing.T) {
	f := NewFakeOIDCClient()
	f.DiscoveryEvents = []domainauth.Event{{Type: domainauth.EventDiscoveryLoaded}}

	var seen []domainauth.EventType
	f.OnEvent(func(ev domainauth.Event) { seen = append(seen, ev.Type) })

	require.NoError(t, f.LoadDiscoveryDocumentAndTryLogin(context.Background()))
	assert.Equal(t, []domainauth.EventType{domainauth.EventDiscoveryLoaded}, seen)
	assert.Equal(t, []string{"OnEvent", "LoadDiscoveryDocumentAndTryLogin"}, f.Calls())
}

func TestRecordingHelpers(t *testing.T) {
	nav := &RecordingNavigator{}
	assert.Empty(t, nav.Last())
	require.NoError(t, nav.Navigate(context.Background(), "https://a"))
	assert.Equal(t, "https://a", nav.Last())

	r := NewRecordingReloader()
	r.Reload("session ended")
	assert.Equal(t, "session ended", <-r.Reloaded())
	assert.Equal(t, []string{"session ended"}, r.Reasons())

	l := &RecordingLogger{}
	l.Warning("w", "origin")
	l.Error("e", "origin", 1)
	assert.Len(t, l.ByLevel("warning"), 1)
	assert.Equal(t, []any{1}, l.ByLevel("error")[0].Params)

	s := NewMapStorage()
	require.NoError(t, s.SetItem(context.Background(), "k", "v"))
	v, ok := s.GetItem("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	require.NoError(t, s.RemoveItem(context.Background(), "k"))
	assert.Equal(t, 0, s.Len())
}
