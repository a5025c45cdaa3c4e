package auth

import "time"

// EventType names an OIDC client event.
type EventType string

const (
	EventDiscoveryLoaded      EventType = "discovery_document_loaded"
	EventDiscoveryLoadError   EventType = "discovery_document_load_error"
	EventTokenReceived        EventType = "token_received"
	EventTokenRefreshed       EventType = "token_refreshed"
	EventTokenRefreshError    EventType = "token_refresh_error"
	EventTokenError           EventType = "token_error"
	EventCodeError            EventType = "code_error"
	EventInvalidNonceInState  EventType = "invalid_nonce_in_state"
	EventSilentRefreshError   EventType = "silent_refresh_error"
	EventSilentRefreshTimeout EventType = "silent_refresh_timeout"
	EventTokenExpires         EventType = "token_expires"
	EventSessionTerminated    EventType = "session_terminated"
	EventSessionError         EventType = "session_error"
	EventLogout               EventType = "logout"
)

var errorEvents = map[EventType]struct{}{
	EventDiscoveryLoadError:   {},
	EventTokenRefreshError:    {},
	EventTokenError:           {},
	EventCodeError:            {},
	EventInvalidNonceInState:  {},
	EventSilentRefreshError:   {},
	EventSilentRefreshTimeout: {},
	EventSessionTerminated:    {},
	EventSessionError:         {},
}

// Event is emitted by an OIDC client.
type Event struct {
	Type   EventType
	Reason error
	Info   any
}

// IsError reports whether the event represents a failure.
func (e Event) IsError() bool {
	_, ok := errorEvents[e.Type]
	return ok
}

// Tab storage keys written by OIDC clients.
const (
	KeyAccessToken         = "access_token"
	KeyIDToken             = "id_token"
	KeyRefreshToken        = "refresh_token"
	KeyExpiresAt           = "expires_at"
	KeyAccessTokenStoredAt = "access_token_stored_at"
	KeyIDTokenClaims       = "id_token_claims_obj"
	KeyGrantedScopes       = "granted_scopes"
	KeyNonce               = "nonce"
	KeyPKCEVerifier        = "PKCE_verifier"
)

// TokenKeys lists every key cleared on logout. KeyAccessToken is last so
// the shared flag is cleared only after the rest of the session is gone.
var TokenKeys = []string{
	KeyIDToken,
	KeyRefreshToken,
	KeyExpiresAt,
	KeyAccessTokenStoredAt,
	KeyIDTokenClaims,
	KeyGrantedScopes,
	KeyNonce,
	KeyPKCEVerifier,
	KeyAccessToken,
}

// SignalType is the kind of cross-instance session message.
type SignalType string

// SignalSessionEnded announces that the shared session flag was removed.
const SignalSessionEnded SignalType = "session_ended"

// SessionSignal is broadcast between shell instances sharing a session.
type SessionSignal struct {
	Type   SignalType `json:"type"`
	Origin string     `json:"origin"`
	At     time.Time  `json:"at"`
}
