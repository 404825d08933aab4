package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
// AllowedOrigins entries are exact origins, "*", or a subdomain pattern such
// as "https://*.example.com".
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type originRule struct {
	any    bool
	exact  string
	scheme string
	suffix string
}

// WithCORS adds CORS handling. An empty AllowedOrigins list disables it.
// Preflights from unknown origins get 403 instead of reaching the handler.
func WithCORS(cfg CORSPolicy) Middleware {
	rules := compileOrigins(cfg.AllowedOrigins)
	if len(rules) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	allowedMethods := strings.Join(normalizeList(cfg.AllowedMethods), ", ")
	allowedHeaders := strings.Join(normalizeList(cfg.AllowedHeaders), ", ")
	exposedHeaders := strings.Join(normalizeList(cfg.ExposedHeaders), ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			headers := w.Header()
			headers.Add("Vary", "Origin")

			allowOrigin, ok := matchOrigin(origin, rules, cfg.AllowCredentials)
			if !ok {
				if preflight {
					http.Error(w, "origin not allowed", http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			headers.Set("Access-Control-Allow-Origin", allowOrigin)
			if cfg.AllowCredentials {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposedHeaders != "" {
				headers.Set("Access-Control-Expose-Headers", exposedHeaders)
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			headers.Add("Vary", "Access-Control-Request-Method")
			headers.Add("Vary", "Access-Control-Request-Headers")
			if allowedMethods != "" {
				headers.Set("Access-Control-Allow-Methods", allowedMethods)
			}
			if allowedHeaders != "" {
				headers.Set("Access-Control-Allow-Headers", allowedHeaders)
			}
			if cfg.MaxAge > 0 {
				headers.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func compileOrigins(origins []string) []originRule {
	var rules []originRule
	for _, o := range normalizeList(origins) {
		o = strings.ToLower(strings.TrimSuffix(o, "/"))
		switch {
		case o == "*":
			rules = append(rules, originRule{any: true})
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			rules = append(rules, originRule{scheme: scheme + "://", suffix: host})
		default:
			rules = append(rules, originRule{exact: o})
		}
	}
	return rules
}

func matchOrigin(origin string, rules []originRule, allowCredentials bool) (string, bool) {
	lower := strings.ToLower(origin)
	for _, rule := range rules {
		switch {
		case rule.any:
			if allowCredentials {
				return origin, true
			}
			return "*", true
		case rule.exact != "":
			if rule.exact == lower {
				return origin, true
			}
		default:
			host, ok := strings.CutPrefix(lower, rule.scheme)
			if ok && strings.HasSuffix(host, rule.suffix) && len(host) > len(rule.suffix) {
				return origin, true
			}
		}
	}
	return "", false
}
