package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	apperrors "github.com/target/mmk-ui-shell/internal/errors"
)

// APIProxy forwards local requests to the configured API through the request pipeline.
type APIProxy struct {
	App       AppInfoService
	Transport http.RoundTripper
	Logger    *slog.Logger
}

func (p *APIProxy) logger() *slog.Logger {
	if p != nil && p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ServeHTTP resolves the API URL per request; the document may load after the router is built.
func (p *APIProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := apiTarget(p.App.APIURL())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "invalid_api_url", Err: err})
		return
	}
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// Local credentials never leave the shell; the pipeline attaches its own.
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
		},
		Transport:    p.Transport,
		ErrorHandler: p.handleError,
	}
	proxy.ServeHTTP(w, r)
}

func (p *APIProxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		if code := apperrors.GetCode(rerr); code != "" {
			p.logger().Warn("api request rejected",
				slog.String("path", r.URL.Path),
				slog.Int("status", rerr.StatusCode),
				slog.String("code", string(code)))
		}
		copyEndToEndHeaders(w.Header(), rerr.Header)
		w.WriteHeader(rerr.StatusCode)
		_, _ = w.Write(rerr.Body)
		return
	}
	p.logger().Error("api proxy failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_unavailable", Err: err})
}

// hopHeaders apply to a single connection and are not relayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func copyEndToEndHeaders(dst, src http.Header) {
	skip := make(map[string]bool, len(hopHeaders))
	for _, h := range hopHeaders {
		skip[h] = true
	}
	for _, f := range src.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip[http.CanonicalHeaderKey(name)] = true
			}
		}
	}
	for k, vv := range src {
		if skip[k] || k == "Content-Length" {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// apiTarget parses the document API URL, which may omit its scheme.
func apiTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("api url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", raw)
	}
	return u, nil
}
