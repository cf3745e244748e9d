package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seikenbot/pkg/entities"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base string
		part string
		url  string
	}{
		{"https://api.github.com", "/users/octocat", "https://api.github.com/users/octocat"},
		{"http://some-url.biz/api/v3/", "/users/octocat", "http://some-url.biz/api/v3/users/octocat"},
		{"http://some-url.biz/api?x=1", "users/octocat?y=2", "http://some-url.biz/api/users/octocat?x=1&y=2"},
	}
	for _, tc := range tests {
		u, err := joinURL(tc.base, tc.part)
		require.NoError(t, err)
		assert.Equal(t, tc.url, u.String())
	}
}

func TestGitHubProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/users/octocat":
			_, _ = io.WriteString(w, `{"login":"octocat","name":"The Octocat","avatar_url":"https://avatars.example/u/583231"}`)
		case "/users/ghost-user":
			http.NotFound(w, r)
		case "/users/limited":
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
		default:
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cl := NewGitHubClient(srv.URL, time.Second)

	p, err := cl.Profile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, entities.Profile{
		Login:     "octocat",
		Name:      "The Octocat",
		AvatarURL: "https://avatars.example/u/583231",
	}, p)

	_, err = cl.Profile(context.Background(), "ghost-user")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = cl.Profile(context.Background(), "limited")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "status 403")

	_, err = cl.Profile(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGitHubProfileTransportAndDecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"login":`)
	}))
	cl := NewGitHubClient(srv.URL, time.Second)

	_, err := cl.Profile(context.Background(), "octocat")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "decode")

	srv.Close()
	_, err = cl.Profile(context.Background(), "octocat")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
}

func TestGitHubProfileInvalidLoginMakesNoRequest(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	cl := NewGitHubClient(srv.URL, time.Second)
	for _, name := range []string{"", "../admin", "-leading", "trailing-", "double--hyphen", strings.Repeat("a", 40)} {
		_, err := cl.Profile(context.Background(), name)
		assert.ErrorIs(t, err, ErrProfileNotFound, name)
	}
	assert.Zero(t, requests.Load())
}

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "es", r.FormValue("language"))
		assert.Equal(t, "json", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "voice.ogg", hdr.Filename)
		audio, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "OggS-audio-bytes", string(audio))

		_, _ = io.WriteString(w, `{"text":"  hola mundo \n"}`)
	}))
	defer srv.Close()

	cl := NewWhisperClient(srv.URL, "secret-key", "", "es", time.Second)
	text, err := cl.Transcribe(context.Background(), strings.NewReader("OggS-audio-bytes"), "ogg")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", text)
}

func TestWhisperTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cl := NewWhisperClient(srv.URL, "wrong", "whisper-1", "", time.Second)
	_, err := cl.Transcribe(context.Background(), strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestBotSecretsFromData(t *testing.T) {
	s, err := botSecretsFromData(map[string]interface{}{
		VaultBotTokenKey: "123:abc",
		"unrelated":      42,
	})
	require.NoError(t, err)
	assert.Equal(t, BotSecrets{BotToken: "123:abc"}, s)

	_, err = botSecretsFromData(map[string]interface{}{VaultSTTKey: 42})
	assert.Error(t, err)
}
