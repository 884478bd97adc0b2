package auth

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// TokenHeader carries the token on API requests. Clients that cannot set
// headers (websocket upgrades) may pass ?token= instead.
const TokenHeader = "X-Observatoire-Token"

// IdentityFunc derives the requester identity from a request.
type IdentityFunc func(r *http.Request) string

// Require returns middleware that lets a request through only when it
// carries a valid token for scope. Rejections are answered with 403 and a
// JSON {"message": ...} body.
func (i *Issuer) Require(scope Scope, identify IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if !i.Verify(scope, identify(r), token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "security check failed"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the requester address. With trustProxy set, the first
// X-Forwarded-For entry wins; otherwise the socket peer is used.
func ClientIP(trustProxy bool) IdentityFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}
