// Package gateway provides a gateway to the GitHub REST API, abstracting
// away the underlying client, pagination, and rate-limit handling.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/sambett/github-api-visualize/internal/domain"
)

// ErrRateLimited reports that the API quota was exhausted mid-fetch. The
// records gathered before the cutoff are still returned alongside it, so
// callers must not discard the slice when they see this error.
var ErrRateLimited = errors.New("github api rate limit exhausted")

// maxPerPage is the largest page size the GitHub list endpoints accept.
const maxPerPage = 100

// Fetcher defines the behavior of a gateway for fetching information from
// GitHub. Both operations return at most limit records and may return a
// partial slice together with a non-nil error.
type Fetcher interface {
	FetchRepositories(ctx context.Context, org string, limit int) ([]domain.Repository, error)
	FetchCommits(ctx context.Context, org, repo string, limit int) ([]domain.Commit, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface on
// top of the go-github client.
type GitHubGateway struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubGateway creates a gateway whose transport waits out secondary
// rate limits. When token is empty the client is unauthenticated and subject
// to the much lower anonymous quota; that is a degraded mode, not an error.
func NewGitHubGateway(token string, logger *slog.Logger) (*GitHubGateway, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(5*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	httpClient := &http.Client{Transport: waiter}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient.Transport = &oauth2.Transport{
			Base:   waiter,
			Source: ts,
		}
	}

	return &GitHubGateway{
		client: github.NewClient(httpClient),
		logger: logger,
	}, nil
}

// FetchRepositories lists repositories under org, most recently updated
// first, paginating until limit records are gathered or the API reports no
// further pages.
func (g *GitHubGateway) FetchRepositories(ctx context.Context, org string, limit int) ([]domain.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	var out []domain.Repository
	for {
		g.logger.Debug("fetching repositories page", "org", org, "page", opts.Page)
		repos, resp, err := g.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return out, g.classify(err, fmt.Sprintf("listing repositories for %s", org))
		}
		for _, r := range repos {
			out = append(out, toRepository(org, r))
			if len(out) == limit {
				return out, nil
			}
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// FetchCommits lists the commit history of org/repo in the API's default
// reverse-chronological order, up to limit records.
func (g *GitHubGateway) FetchCommits(ctx context.Context, org, repo string, limit int) ([]domain.Commit, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	var out []domain.Commit
	for {
		g.logger.Debug("fetching commits page", "org", org, "repo", repo, "page", opts.Page)
		commits, resp, err := g.client.Repositories.ListCommits(ctx, org, repo, opts)
		if err != nil {
			return out, g.classify(err, fmt.Sprintf("listing commits for %s/%s", org, repo))
		}
		for _, c := range commits {
			out = append(out, toCommit(org, repo, c))
			if len(out) == limit {
				return out, nil
			}
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// classify maps a go-github error to the gateway error taxonomy. Primary
// quota exhaustion becomes ErrRateLimited; anything else is a plain request
// failure.
func (g *GitHubGateway) classify(err error, op string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		g.logger.Warn("rate limit exhausted", "op", op, "reset", rateErr.Rate.Reset.Time)
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pageSize(limit int) int {
	if limit < maxPerPage {
		return limit
	}
	return maxPerPage
}

func toRepository(org string, r *github.Repository) domain.Repository {
	return domain.Repository{
		Org:         org,
		Name:        r.GetName(),
		ID:          r.GetID(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Watchers:    r.GetWatchersCount(),
		Language:    r.GetLanguage(),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
		Description: flatten(r.GetDescription()),
	}
}

func toCommit(org, repo string, c *github.RepositoryCommit) domain.Commit {
	authoredAt := c.GetCommit().GetAuthor().GetDate().Time
	return domain.Commit{
		Org:         org,
		RepoName:    repo,
		SHA:         c.GetSHA(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		Message:     flatten(c.GetCommit().GetMessage()),
		AuthoredAt:  authoredAt,
		DayOfWeek:   authoredAt.Weekday().String(),
		HourOfDay:   authoredAt.Hour(),
	}
}

// flatten replaces newlines so multi-line text stays on one CSV row.
func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
