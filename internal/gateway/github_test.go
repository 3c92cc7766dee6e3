package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &GitHubGateway{client: client, logger: logger}, server
}

// rateLimitExhausted writes the response GitHub sends when the primary quota
// is used up.
func rateLimitExhausted(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "60")
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
}

func TestGitHubGateway_FetchRepositories(t *testing.T) {
	testCases := []struct {
		name          string
		limit         int
		handlerFunc   func(w http.ResponseWriter, r *http.Request)
		expectedNames []string
		expectError   bool
	}{
		{
			name:  "happy path - fewer repositories than the cap",
			limit: 5,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/orgs/test-org/repos", r.URL.Path)
				assert.Equal(t, "updated", r.URL.Query().Get("sort"))
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `[{"name": "alpha"}, {"name": "beta"}, {"name": "gamma"}]`)
			},
			expectedNames: []string{"alpha", "beta", "gamma"},
			expectError:   false,
		},
		{
			name:  "limit reached - stops mid page",
			limit: 2,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `[{"name": "alpha"}, {"name": "beta"}, {"name": "gamma"}]`)
			},
			expectedNames: []string{"alpha", "beta"},
			expectError:   false,
		},
		{
			name:  "error case - server error yields partial and error",
			limit: 5,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectedNames: []string{},
			expectError:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, _ := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))

			repos, err := gateway.FetchRepositories(context.Background(), "test-org", tc.limit)

			if tc.expectError {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrRateLimited)
			} else {
				assert.NoError(t, err)
			}
			names := make([]string, 0, len(repos))
			for _, r := range repos {
				names = append(names, r.Name)
			}
			assert.Equal(t, tc.expectedNames, names)
			assert.LessOrEqual(t, len(repos), tc.limit)
		})
	}
}

func TestGitHubGateway_FetchRepositories_MapsFields(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[{
			"id": 42,
			"name": "alpha",
			"stargazers_count": 7,
			"forks_count": 3,
			"open_issues_count": 2,
			"watchers_count": 5,
			"language": "Go",
			"created_at": "2020-01-02T03:04:05Z",
			"updated_at": "2024-06-07T08:09:10Z",
			"description": "line one\nline two"
		}]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	repos, err := gateway.FetchRepositories(context.Background(), "test-org", 10)

	require.NoError(t, err)
	require.Len(t, repos, 1)
	repo := repos[0]
	assert.Equal(t, "test-org", repo.Org)
	assert.Equal(t, "alpha", repo.Name)
	assert.Equal(t, int64(42), repo.ID)
	assert.Equal(t, 7, repo.Stars)
	assert.Equal(t, 3, repo.Forks)
	assert.Equal(t, 2, repo.OpenIssues)
	assert.Equal(t, 5, repo.Watchers)
	assert.Equal(t, "Go", repo.Language)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), repo.CreatedAt)
	assert.Equal(t, time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC), repo.UpdatedAt)
	assert.Equal(t, "line one line two", repo.Description, "description newlines must be flattened for CSV")
}

func TestGitHubGateway_FetchRepositories_Pagination(t *testing.T) {
	// The server URL is only known after the server starts, but the handler
	// needs it to build absolute Link headers. It runs at request time, so
	// assigning the variable after NewServer is safe.
	var serverURL string
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/test-org/repos?page=2>; rel="next"`, serverURL))
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `[{"name": "alpha"}, {"name": "beta"}]`)
		case "2":
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `[{"name": "gamma"}]`)
		default:
			t.Errorf("unexpected page requested: %s", r.URL.Query().Get("page"))
		}
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	serverURL = server.URL

	repos, err := gateway.FetchRepositories(context.Background(), "test-org", 10)

	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, "gamma", repos[2].Name)
}

func TestGitHubGateway_FetchCommits(t *testing.T) {
	t.Run("maps fields and derives day and hour", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/test-org/alpha/commits", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			// 2024-03-04 is a Monday.
			fmt.Fprint(w, `[{
				"sha": "abc123",
				"commit": {
					"message": "fix bug\n\ndetails",
					"author": {"name": "Ada", "email": "ada@example.com", "date": "2024-03-04T15:04:05Z"}
				}
			}]`)
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		commits, err := gateway.FetchCommits(context.Background(), "test-org", "alpha", 10)

		require.NoError(t, err)
		require.Len(t, commits, 1)
		commit := commits[0]
		assert.Equal(t, "test-org", commit.Org)
		assert.Equal(t, "alpha", commit.RepoName)
		assert.Equal(t, "abc123", commit.SHA)
		assert.Equal(t, "Ada", commit.AuthorName)
		assert.Equal(t, "ada@example.com", commit.AuthorEmail)
		assert.Equal(t, "fix bug  details", commit.Message)
		assert.Equal(t, time.Date(2024, 3, 4, 15, 4, 5, 0, time.UTC), commit.AuthoredAt)
		assert.Equal(t, "Monday", commit.DayOfWeek)
		assert.Equal(t, 15, commit.HourOfDay)
		assert.Zero(t, commit.Additions)
		assert.Zero(t, commit.Deletions)
	})

	t.Run("never returns more commits than the limit", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `[`)
			for i := 0; i < 15; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"sha": "sha-%d", "commit": {"author": {"date": "2024-03-04T00:00:00Z"}}}`, i)
			}
			fmt.Fprint(w, `]`)
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		commits, err := gateway.FetchCommits(context.Background(), "test-org", "alpha", 10)

		require.NoError(t, err)
		assert.Len(t, commits, 10)
	})

	t.Run("rate limit on page 2 keeps page 1 records", func(t *testing.T) {
		var serverURL string
		handler := func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				rateLimitExhausted(w)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/test-org/alpha/commits?page=2>; rel="next"`, serverURL))
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `[
				{"sha": "one", "commit": {"author": {"date": "2024-03-04T00:00:00Z"}}},
				{"sha": "two", "commit": {"author": {"date": "2024-03-03T00:00:00Z"}}}
			]`)
		}
		gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
		serverURL = server.URL

		commits, err := gateway.FetchCommits(context.Background(), "test-org", "alpha", 100)

		assert.ErrorIs(t, err, ErrRateLimited)
		require.Len(t, commits, 2, "records from page 1 must survive the cutoff")
		assert.Equal(t, "one", commits[0].SHA)
		assert.Equal(t, "two", commits[1].SHA)
	})
}
