package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig guards the API: incoming messages carry the shared webhook
// secret, read endpoints need a bearer token.
type AuthConfig struct {
	JWTSecret     string
	WebhookSecret string
	Logger        *log.Logger
}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

func authenticateJWT(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

// secretMatches compares digests so length differences leak nothing. An
// empty configured secret disables the check.
func secretMatches(got, configured string) bool {
	if strings.TrimSpace(configured) == "" {
		return true
	}
	a := sha256.Sum256([]byte(got))
	b := sha256.Sum256([]byte(configured))
	return hmac.Equal(a[:], b[:])
}

func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rel := strings.TrimPrefix(r.URL.Path, basePath)
			switch {
			case rel == "/health" || strings.HasPrefix(rel, "/openapi"):
				next.ServeHTTP(w, r)
			case rel == "/messages":
				if !secretMatches(r.Header.Get("X-Meetline-Secret"), cfg.WebhookSecret) {
					cfg.logger().Printf("server: rejected message post with bad secret from %s", r.RemoteAddr)
					writeUnauthorized(w, "invalid webhook secret")
					return
				}
				next.ServeHTTP(w, r)
			default:
				token, ok := bearerToken(r)
				if !ok {
					writeUnauthorized(w, "authentication required")
					return
				}
				if _, err := authenticateJWT(token, cfg.JWTSecret); err != nil {
					cfg.logger().Printf("server: rejected bearer token: %v", err)
					writeUnauthorized(w, "invalid token")
					return
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": "unauthorized", "message": message},
	})
}
