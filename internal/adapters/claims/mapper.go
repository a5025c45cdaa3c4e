// Package claims maps ID token claims onto identities using JMESPath expressions.
package claims

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.ClaimsMapper = (*Mapper)(nil)

// Paths holds one JMESPath expression per identity field. Empty paths are skipped.
type Paths struct {
	CommonName string
	Username   string
	Roles      string
}

// Mapper evaluates Paths against a claims object.
type Mapper struct {
	paths Paths
}

// NewMapper validates every non-empty expression.
func NewMapper(paths Paths) (*Mapper, error) {
	for field, expr := range map[string]string{
		"common name": paths.CommonName,
		"username":    paths.Username,
		"roles":       paths.Roles,
	} {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid %s claim path %q: %w", field, expr, err)
		}
	}
	return &Mapper{paths: paths}, nil
}

// Map extracts the identity. Missing or mistyped claims produce zero values.
func (m *Mapper) Map(claims map[string]any) domainauth.Identity {
	if len(claims) == 0 {
		return domainauth.Identity{}
	}
	return domainauth.Identity{
		CommonName: asString(m.search(m.paths.CommonName, claims)),
		Username:   asString(m.search(m.paths.Username, claims)),
		Roles:      asStrings(m.search(m.paths.Roles, claims)),
	}
}

func (m *Mapper) search(expr string, claims map[string]any) any {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	v, err := jmespath.Search(expr, claims)
	if err != nil {
		return nil
	}
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case []any:
		if len(t) > 0 {
			return asString(t[0])
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case string:
		if t == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
