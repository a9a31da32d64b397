// Package sharing issues and verifies read-only share links for pages.
package sharing

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/maruel/ksid"
	apierrors "github.com/maruel/notedb/internal/errors"
)

// defaultTTL is the share link lifetime when the caller does not specify one.
const defaultTTL = 7 * 24 * time.Hour

// Manager signs and verifies share tokens. Tokens are HS256 JWTs scoped to
// a single page; possession of the token grants read access to that page
// and its subtree.
type Manager struct {
	secret []byte
}

// NewManager creates a Manager with the given signing secret.
func NewManager(secret []byte) *Manager {
	return &Manager{secret: secret}
}

// Issue creates a share token for the page. A zero ttl falls back to the
// default lifetime.
func (m *Manager) Issue(pageID ksid.ID, ttl time.Duration) (string, time.Time, error) {
	if ttl == 0 {
		ttl = defaultTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": pageID.String(),
		"jti": uuid.NewString(),
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the shared page ID.
func (m *Manager) Verify(tokenString string) (ksid.ID, error) {
	var zero ksid.ID
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return zero, apierrors.Unauthorized().Wrap(err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return zero, apierrors.Unauthorized().Wrap(err)
	}
	id, err := ksid.Parse(sub)
	if err != nil {
		return zero, apierrors.Unauthorized().Wrap(err)
	}
	return id, nil
}
