package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"seikenbot/pkg/entities"
)

const DefaultGitHubAPIURL = "https://api.github.com"

var ErrProfileNotFound = errors.New("profile not found")

const maxGitHubLoginLength = 39

// alphanumeric with single inner hyphens
var githubLoginRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9])*$`)

type GitHubClient struct {
	baseURL string
	cl      *http.Client
}

func NewGitHubClient(baseURL string, timeout time.Duration) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	return &GitHubClient{baseURL: baseURL, cl: &http.Client{Timeout: timeout}}
}

// Profile fetches the public profile of the user. Any unsuccessful API response, or a name that
// cannot be a GitHub login, yields ErrProfileNotFound. Transport and decoding failures are returned as is.
func (c *GitHubClient) Profile(ctx context.Context, username string) (entities.Profile, error) {
	if len(username) > maxGitHubLoginLength || !githubLoginRe.MatchString(username) {
		return entities.Profile{}, errors.Wrapf(ErrProfileNotFound, "invalid login %q", username)
	}
	u, err := joinURL(c.baseURL, "/users/"+url.PathEscape(username))
	if err != nil {
		return entities.Profile{}, errors.Wrap(err, "failed to build profile URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return entities.Profile{}, errors.Wrap(err, "failed to create profile request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.cl.Do(req)
	if err != nil {
		return entities.Profile{}, errors.Wrapf(err, "profile request for %q failed", username)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return entities.Profile{}, errors.Wrapf(ErrProfileNotFound, "user %q, API responded with status %d: %s",
			username, resp.StatusCode, strings.TrimSpace(string(msg)),
		)
	}
	var p entities.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return entities.Profile{}, errors.Wrap(err, "failed to decode profile")
	}
	return p, nil
}

func joinURL(baseRaw string, pathRaw string) (*url.URL, error) {
	baseURL, err := url.Parse(baseRaw)
	if err != nil {
		return nil, err
	}
	pathURL, err := url.Parse(pathRaw)
	if err != nil {
		return nil, err
	}
	// nosemgrep: go.lang.correctness.use-filepath-join.use-filepath-join
	baseURL.Path = path.Join(baseURL.Path, pathURL.Path)

	query := baseURL.Query()
	for k := range pathURL.Query() {
		query.Set(k, pathURL.Query().Get(k))
	}
	baseURL.RawQuery = query.Encode()

	return baseURL, nil
}
