package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	adminRole       = "admin"
	adminCookie     = "pairs_admin"
	defaultTokenTTL = 12 * time.Hour
	minSecretLength = 16
)

// AdminAuth guards the settings endpoints with HS256 tokens issued against a
// bcrypt password hash
type AdminAuth struct {
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAdminAuth validates the secret and password hash. A zero ttl uses the
// default token lifetime.
func NewAdminAuth(secret, passwordHash string, ttl time.Duration) (*AdminAuth, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("admin token secret must be at least %d characters", minSecretLength)
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &AdminAuth{
		secret:       []byte(secret),
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// Login checks the password and issues a token
func (a *AdminAuth) Login(password string) (string, time.Time, error) {
	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		return "", time.Time{}, ErrUnauthorized
	}

	now := a.now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": adminRole,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks a token's signature, expiry and role
func (a *AdminAuth) Verify(tokenStr string) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	if role, _ := claims["role"].(string); role != adminRole {
		return fmt.Errorf("%w: not an admin token", ErrUnauthorized)
	}
	return nil
}

// HashPassword produces the bcrypt hash expected by NewAdminAuth
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// requireAdmin rejects requests without a valid admin token. It lets every
// request through when admin auth is not configured.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.admin == nil {
			next.ServeHTTP(w, r)
			return
		}

		if err := s.admin.Verify(bearerOrCookie(r)); err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("admin request rejected")
			respondServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		respondError(w, http.StatusNotFound, "admin authentication is not configured")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, exp, err := s.admin.Login(req.Password)
	if err != nil {
		log.Warn().Str("remote", r.RemoteAddr).Msg("admin login failed")
		respondServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": exp,
	})
}

func bearerOrCookie(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(adminCookie); err == nil {
		return c.Value
	}
	return ""
}
