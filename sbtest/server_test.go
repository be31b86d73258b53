package sbtest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/smartbridge/sbsig"
)

const (
	testAPIKey = "sb_live_test"
	testSecret = "sk_secret_test"
)

func post(t *testing.T, s *Server, body string, now time.Time, mutate func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()

	signer, err := sbsig.NewSigner(
		sbsig.Credentials{APIKey: testAPIKey, Secret: sbsig.NewSecret(testSecret)},
		sbsig.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.Endpoint(), strings.NewReader(body))
	require.NoError(t, err)

	_, err = sbsig.SignRequest(req, signer)
	require.NoError(t, err)

	if mutate != nil {
		mutate(req)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))

	return resp, out
}

func requireRejected(t *testing.T, resp *http.Response, body map[string]any, status int, code string) {
	t.Helper()

	require.Equal(t, status, resp.StatusCode)
	assert.Equal(t, code, body["code"])
	assert.NotEmpty(t, body["message"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(status), data["status"])
}

func TestServerCreateLink(t *testing.T) {
	now := time.Date(2026, 1, 3, 14, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("generated slug", func(t *testing.T) {
		s := NewServer(WithKey(testAPIKey, testSecret), WithClock(clock))
		defer s.Close()

		resp, body := post(t, s, `{"target_url":"https://www.example.co.uk/item"}`, now, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, sbsig.ContentType, resp.Header.Get("Content-Type"))

		slug, _ := body["slug"].(string)
		assert.Regexp(t, `^[0-9A-Za-z]{6}$`, slug)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, s.URL+"/go/"+slug, body["short_link"])
		assert.Equal(t, "https://www.example.co.uk/item", body["target_url"])
		assert.Equal(t, "example.co.uk", body["platform"])
		assert.Equal(t, "2026-01-03T14:30:00Z", body["created_at"])

		link, ok := s.Link(slug)
		require.True(t, ok)
		assert.Equal(t, "https://www.example.co.uk/item", link.TargetURL)
	})

	t.Run("custom slug", func(t *testing.T) {
		s := NewServer(WithKey(testAPIKey, testSecret), WithClock(clock))
		defer s.Close()

		resp, body := post(t, s, `{"target_url":"https://example.com/a","slug":"my_slug-1","loading_message":"<b>wait</b>"}`, now, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "my_slug-1", body["slug"])

		link, ok := s.Link("my_slug-1")
		require.True(t, ok)
		assert.Equal(t, "<b>wait</b>", link.LoadingMessage)
	})

	t.Run("validation", func(t *testing.T) {
		s := NewServer(WithKey(testAPIKey, testSecret), WithClock(clock))
		defer s.Close()

		resp, body := post(t, s, `{"target_url":"ftp://example.com/a"}`, now, nil)
		requireRejected(t, resp, body, http.StatusBadRequest, "invalid_url")

		resp, body = post(t, s, `{}`, now, nil)
		requireRejected(t, resp, body, http.StatusBadRequest, "invalid_url")

		resp, body = post(t, s, `{"target_url":"https://example.com/a","slug":"no spaces"}`, now, nil)
		requireRejected(t, resp, body, http.StatusBadRequest, "invalid_slug")
	})

	t.Run("conflict", func(t *testing.T) {
		s := NewServer(WithKey(testAPIKey, testSecret), WithClock(clock))
		defer s.Close()

		s.Seed("taken", "https://example.com/old")

		resp, body := post(t, s, `{"target_url":"https://example.com/new","slug":"taken"}`, now, nil)
		requireRejected(t, resp, body, http.StatusConflict, "conflict")

		link, _ := s.Link("taken")
		assert.Equal(t, "https://example.com/old", link.TargetURL)
	})

	t.Run("generation failed", func(t *testing.T) {
		calls := 0
		s := NewServer(
			WithKey(testAPIKey, testSecret),
			WithClock(clock),
			WithSlugGenerator(func() string {
				calls++
				return "fixed"
			}),
		)
		defer s.Close()

		s.Seed("fixed", "https://example.com/old")

		resp, body := post(t, s, `{"target_url":"https://example.com/new"}`, now, nil)
		requireRejected(t, resp, body, http.StatusInternalServerError, "generation_failed")
		assert.Equal(t, slugRetries, calls)
	})
}

func TestServerAuthentication(t *testing.T) {
	now := time.Unix(1735900000, 0)
	clock := func() time.Time { return now }
	body := `{"target_url":"https://example.com/a"}`

	s := NewServer(WithKey(testAPIKey, testSecret), WithClock(clock))
	defer s.Close()

	tests := []struct {
		name   string
		at     time.Time
		mutate func(*http.Request)
		status int
		code   string
	}{
		{
			name:   "wrong user agent",
			at:     now,
			mutate: func(r *http.Request) { r.Header.Set("User-Agent", "curl/8.0") },
			status: http.StatusForbidden,
			code:   "forbidden",
		},
		{
			name:   "missing signature",
			at:     now,
			mutate: func(r *http.Request) { r.Header.Del(sbsig.HeaderSignature) },
			status: http.StatusBadRequest,
			code:   "missing_headers",
		},
		{
			name:   "stale timestamp",
			at:     now.Add(-61 * time.Second),
			status: http.StatusUnauthorized,
			code:   "expired",
		},
		{
			name:   "future timestamp",
			at:     now.Add(61 * time.Second),
			status: http.StatusUnauthorized,
			code:   "expired",
		},
		{
			name:   "unknown key",
			at:     now,
			mutate: func(r *http.Request) { r.Header.Set(sbsig.HeaderAPIKey, "sb_live_other") },
			status: http.StatusForbidden,
			code:   "invalid_key",
		},
		{
			name:   "tampered signature",
			at:     now,
			mutate: func(r *http.Request) { r.Header.Set(sbsig.HeaderSignature, strings.Repeat("0", 64)) },
			status: http.StatusForbidden,
			code:   "invalid_signature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, s, body, tt.at, tt.mutate)
			requireRejected(t, resp, out, tt.status, tt.code)
		})
	}

	t.Run("window edge accepted", func(t *testing.T) {
		resp, _ := post(t, s, body, now.Add(-60*time.Second), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("requests recorded", func(t *testing.T) {
		received := s.Received()
		require.NotEmpty(t, received)

		last := received[len(received)-1]
		assert.Equal(t, body, string(last.Body))
		assert.Equal(t, testAPIKey, last.Header.Get(sbsig.HeaderAPIKey))
	})
}

func TestServerCustomUserAgent(t *testing.T) {
	s := NewServer(WithKey(testAPIKey, testSecret), WithUserAgent("SB-Client/Test"))
	defer s.Close()

	resp, out := post(t, s, `{"target_url":"https://example.com/a"}`, time.Now(), nil)
	requireRejected(t, resp, out, http.StatusForbidden, "forbidden")

	resp, _ = post(t, s, `{"target_url":"https://example.com/a"}`, time.Now(), func(r *http.Request) {
		r.Header.Set("User-Agent", "SB-Client/Test")
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://link.coupang.com/a/cfvjXy", "coupang.com"},
		{"https://www.amazon.co.jp/dp/B0", "amazon.co.jp"},
		{"http://example.com", "example.com"},
		{"https://localhost:8080/x", "localhost"},
		{"https://192.168.0.1/x", "192.168.0.1"},
		{"not a url", "Unknown"},
		{"", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}
