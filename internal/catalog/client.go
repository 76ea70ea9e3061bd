package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jalvarez/go-partyjam/internal/types"
)

const (
	tokenURL  = "https://accounts.spotify.com/api/token"
	searchURL = "https://api.spotify.com/v1/search"

	defaultSearchLimit = 20
)

// TrackSearcher looks up playable tracks in the music catalog.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string) ([]types.CatalogTrack, error)
}

// SpotifyClient searches the Spotify catalog using the client-credentials
// grant. The access token is cached and refreshed shortly before expiry.
type SpotifyClient struct {
	clientId     string
	clientSecret string
	httpClient   *http.Client

	tokenMu     sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []trackItem `json:"items"`
	} `json:"tracks"`
}

type trackItem struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func NewSpotifyClient(clientId, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientId:     clientId,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientId + ":" + c.clientSecret))
	req.Header.Add("Authorization", "Basic "+auth)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify: token request failed with status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	// renew a minute early so in-flight searches don't race expiry
	c.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

func (c *SpotifyClient) SearchTracks(ctx context.Context, query string) ([]types.CatalogTrack, error) {
	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog token: %w", err)
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("type", "track")
	params.Add("limit", fmt.Sprintf("%d", defaultSearchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify: search request failed with status %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	tracks := make([]types.CatalogTrack, 0, len(searchResp.Tracks.Items))
	for _, item := range searchResp.Tracks.Items {
		tracks = append(tracks, types.CatalogTrack{
			Id:       item.Id,
			Title:    item.Name,
			Artist:   joinArtists(item),
			ImageUrl: firstImage(item),
		})
	}

	return tracks, nil
}

func joinArtists(item trackItem) string {
	names := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstImage(item trackItem) string {
	if len(item.Album.Images) == 0 {
		return ""
	}
	return item.Album.Images[0].URL
}
