package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostTokenRoundTrip(t *testing.T) {
	app := &PartyJamApp{signingKey: []byte("test-signing-key")}

	hostId := uuid.New()
	token, err := app.createHostToken(hostId, "JAM123", time.Hour)
	require.NoError(t, err, "expected token to be created")

	claims, err := app.extractHostClaims(token)
	require.NoError(t, err, "expected token to verify")
	assert.Equal(t, hostId, claims.HostId)
	assert.Equal(t, "JAM123", claims.RoomCode)
}

func TestExtractHostClaims_Expired(t *testing.T) {
	app := &PartyJamApp{signingKey: []byte("test-signing-key")}

	token, err := app.createHostToken(uuid.New(), "JAM123", -time.Hour)
	require.NoError(t, err)

	_, err = app.extractHostClaims(token)
	assert.Error(t, err, "expected expired token to be rejected")
}

func TestExtractHostClaims_WrongKey(t *testing.T) {
	app := &PartyJamApp{signingKey: []byte("test-signing-key")}
	other := &PartyJamApp{signingKey: []byte("other-signing-key")}

	token, err := app.createHostToken(uuid.New(), "JAM123", time.Hour)
	require.NoError(t, err)

	_, err = other.extractHostClaims(token)
	assert.Error(t, err, "expected token signed with another key to be rejected")
}

func TestHostTokenFromRequest(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/advance", nil)
		req.Header.Set("Authorization", "Bearer sometoken")

		token, err := hostTokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "sometoken", token)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/advance", nil)
		req.Header.Set("Authorization", "sometoken")

		_, err := hostTokenFromRequest(req)
		assert.Error(t, err, "expected malformed header to be rejected")
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/advance", nil)
		req.AddCookie(createHostTokenCookie("cookietoken", time.Hour))

		token, err := hostTokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "cookietoken", token)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/advance", nil)

		_, err := hostTokenFromRequest(req)
		assert.Error(t, err, "expected missing credentials to be rejected")
	})
}
