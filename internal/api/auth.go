package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	hostIdClaim   = "host-id"
	roomCodeClaim = "room-code"
	expClaim      = "exp"

	tokenCookieKey = "host_token"

	defaultJwtExpiration = 12 * time.Hour
)

type contextKey string

const hostClaimsKey contextKey = "host-claims"

// hostClaims are the verified contents of a host token: the host's identity
// and the one room it controls.
type hostClaims struct {
	HostId   uuid.UUID
	RoomCode string
}

func WithHostClaims(ctx context.Context, claims hostClaims) context.Context {
	return context.WithValue(ctx, hostClaimsKey, claims)
}

func HostClaims(ctx context.Context) (hostClaims, bool) {
	claims, ok := ctx.Value(hostClaimsKey).(hostClaims)
	return claims, ok
}

// createHostToken mints the capability token returned to the host when a
// room is created. It is scoped to a single room code.
func (s *PartyJamApp) createHostToken(hostId uuid.UUID, roomCode string, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		hostIdClaim:   hostId.String(),
		roomCodeClaim: roomCode,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *PartyJamApp) extractHostClaims(tokenString string) (hostClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return hostClaims{}, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return hostClaims{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return hostClaims{}, fmt.Errorf("invalid token claims")
	}

	hostIdStr, ok := claims[hostIdClaim].(string)
	if !ok {
		return hostClaims{}, fmt.Errorf("invalid host id claim")
	}

	hostId, err := uuid.Parse(hostIdStr)
	if err != nil {
		return hostClaims{}, fmt.Errorf("parse host id claim: %w", err)
	}

	roomCode, ok := claims[roomCodeClaim].(string)
	if !ok {
		return hostClaims{}, fmt.Errorf("invalid room code claim")
	}

	return hostClaims{HostId: hostId, RoomCode: roomCode}, nil
}

// hostTokenFromRequest prefers a bearer token so non-browser hosts work, and
// falls back to the cookie set at room creation.
func hostTokenFromRequest(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found {
			return "", fmt.Errorf("malformed authorization header")
		}
		return token, nil
	}

	cookie, err := r.Cookie(tokenCookieKey)
	if err != nil {
		return "", fmt.Errorf("get cookie: %w", err)
	}

	return cookie.Value, nil
}

func createHostTokenCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
