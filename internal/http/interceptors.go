package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"github.com/target/mmk-ui-shell/internal/ports"
	"golang.org/x/net/publicsuffix"
)

const maxErrorBody = 1 << 20

// Interceptor wraps the next stage of the outgoing request pipeline.
type Interceptor func(next http.RoundTripper) http.RoundTripper

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Pipeline returns a transport that runs interceptors in order on the way out
// and in reverse order on the way back. Non-2xx responses reach the interceptors
// as *ResponseError values.
func Pipeline(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := statusErrors(base)
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}

// ResponseError is a 4xx or 5xx HTTP response raised inside the pipeline.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Message is the "message" field of a JSON error body, when present.
	Message string
	// Kind is set by the interceptor that handled the response.
	Kind apperrors.ErrorCode
}

// ErrorCode reports the kind assigned by the 401 and 404 handlers.
func (e *ResponseError) ErrorCode() apperrors.ErrorCode { return e.Kind }

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Http failure response for %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusText returns the standard reason phrase for the status code.
func (e *ResponseError) StatusText() string { return http.StatusText(e.StatusCode) }

// ServerMessage returns the server-provided message, falling back to the status text.
func (e *ResponseError) ServerMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.StatusText()
}

func statusErrors(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ResponseError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
			Message:    serverMessage(body),
		}
	})
}

func asResponseError(err error) (*ResponseError, bool) {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Message
}

// TokenGate reports whether tokens may be attached and where.
type TokenGate interface {
	Enabled() bool
	AllowsURL(rawURL string) bool
}

// TokenSource reads the stored access token.
type TokenSource interface {
	GetItem(key string) (string, bool)
}

// TokenAttacher sets "Authorization: Bearer <token>" on requests whose lower-cased
// URL exactly matches an allow-list entry. Nothing is attached while auth is disabled
// or when no token is stored.
func TokenAttacher(gate TokenGate, tokens TokenSource) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !gate.Enabled() {
				return next.RoundTrip(req)
			}
			if !gate.AllowsURL(req.URL.String()) {
				return next.RoundTrip(req)
			}
			token, ok := tokens.GetItem(domainauth.KeyAccessToken)
			if !ok || token == "" {
				return next.RoundTrip(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(out)
		})
	}
}

// IssuerSource exposes the configured issuer URL.
type IssuerSource interface {
	Issuer() string
}

// SessionTerminator ends the session after an authentication failure.
type SessionTerminator interface {
	IssuerSource
	Logout(ctx context.Context) error
}

// AuthenticationErrorHandler logs 401 responses and logs the session out. The same
// error is re-raised, tagged ErrCodeAuthentication. Requests to the issuer pass untouched.
func AuthenticationErrorHandler(auth SessionTerminator, logger ports.Logger) Interceptor {
	return statusHandler(auth, http.StatusUnauthorized, func(req *http.Request, rerr *ResponseError) {
		rerr.Kind = apperrors.ErrCodeAuthentication
		logger.Error("Authentication Error", "AuthenticationErrorInterceptor", rerr.ServerMessage())
		_ = auth.Logout(context.WithoutCancel(req.Context()))
	})
}

// AuthorizationErrorHandler logs 404 responses and re-raises them tagged
// ErrCodeAuthorization. Requests to the issuer pass untouched.
func AuthorizationErrorHandler(issuer IssuerSource, logger ports.Logger) Interceptor {
	return statusHandler(issuer, http.StatusNotFound, func(_ *http.Request, rerr *ResponseError) {
		rerr.Kind = apperrors.ErrCodeAuthorization
		logger.Error("Authorization Error", "AuthorizationErrorInterceptor", rerr.ServerMessage())
	})
}

func statusHandler(issuer IssuerSource, status int, handle func(*http.Request, *ResponseError)) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.String() == issuer.Issuer() {
				return next.RoundTrip(req)
			}
			resp, err := next.RoundTrip(req)
			if rerr, ok := asResponseError(err); ok && rerr.StatusCode == status {
				handle(req, rerr)
			}
			return resp, err
		})
	}
}

// CookieJar keeps API cookies for the lifetime of the jar, the way a browser
// keeps them for a tab.
func CookieJar(jar http.CookieJar) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			out := req.Clone(req.Context())
			for _, c := range jar.Cookies(out.URL) {
				out.AddCookie(c)
			}
			resp, err := next.RoundTrip(out)
			if resp != nil {
				if cookies := resp.Cookies(); len(cookies) > 0 {
					jar.SetCookies(out.URL, cookies)
				}
			}
			return resp, err
		})
	}
}

// NewCookieJar returns a jar that honours public suffix boundaries.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// APIAuth is the auth surface the API pipeline depends on.
type APIAuth interface {
	TokenGate
	SessionTerminator
}

// RequestObserver receives the outcome of every API request. status is 0 when no
// response arrived.
type RequestObserver interface {
	ObserveAPIRequest(method string, status int, d time.Duration, err error)
}

// Observe reports each request's status and latency to obs, including failures
// raised by later interceptors.
func Observe(obs RequestObserver) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			status := 0
			if resp != nil {
				status = resp.StatusCode
			} else if re, ok := asResponseError(err); ok {
				status = re.StatusCode
			}
			obs.ObserveAPIRequest(req.Method, status, time.Since(start), err)
			return resp, err
		})
	}
}

// APITransportOptions groups dependencies for NewAPITransport.
type APITransportOptions struct {
	Base     http.RoundTripper // Optional: defaults to http.DefaultTransport
	Auth     APIAuth           // Required
	Tokens   TokenSource       // Required
	Logger   ports.Logger      // Required
	Observer RequestObserver   // Optional
}

// NewAPITransport builds the pipeline used for every API request of a shell instance:
// cookies, token attachment, then the 401 and 404 handlers.
func NewAPITransport(opts APITransportOptions) (http.RoundTripper, error) {
	if opts.Auth == nil || opts.Tokens == nil || opts.Logger == nil {
		return nil, errors.New("api transport requires Auth, Tokens and Logger")
	}
	jar, err := NewCookieJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	interceptors := []Interceptor{
		CookieJar(jar),
		TokenAttacher(opts.Auth, opts.Tokens),
		AuthenticationErrorHandler(opts.Auth, opts.Logger),
		AuthorizationErrorHandler(opts.Auth, opts.Logger),
	}
	if opts.Observer != nil {
		interceptors = append([]Interceptor{Observe(opts.Observer)}, interceptors...)
	}
	return Pipeline(opts.Base, interceptors...), nil
}
