// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/sambett/github-api-visualize/internal/domain"
	"github.com/sambett/github-api-visualize/internal/gateway"
)

// Number of repositories whose commit histories are fetched in parallel.
const commitConcurrency = 5

// Options are the fetch caps for one snapshot run.
type Options struct {
	Organizations           []string
	MaxRepositories         int
	MaxCommitsPerRepository int
}

// Snapshotter is the use case for producing a snapshot. It orchestrates the
// fetching and aggregation of data.
type Snapshotter struct {
	fetcher gateway.Fetcher
	logger  *slog.Logger
	opts    Options
}

// NewSnapshotter creates a new Snapshotter instance.
func NewSnapshotter(fetcher gateway.Fetcher, logger *slog.Logger, opts Options) *Snapshotter {
	return &Snapshotter{
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
	}
}

// Snapshot fetches repositories and commits for every configured
// organization and derives the contributor dataset. Per-organization and
// per-repository failures are contained: they log a warning, keep whatever
// was gathered, and the run moves on. A rate-limited fetch likewise keeps
// its partial results, so the returned snapshot is always usable.
func (s *Snapshotter) Snapshot(ctx context.Context) *domain.Snapshot {
	snap := &domain.Snapshot{}

	for _, org := range s.opts.Organizations {
		if ctx.Err() != nil {
			s.logger.Warn("snapshot interrupted", "reason", ctx.Err())
			break
		}
		s.logger.Info("fetching repositories", "org", org)

		repos, err := s.fetcher.FetchRepositories(ctx, org, s.opts.MaxRepositories)
		if err != nil {
			if errors.Is(err, gateway.ErrRateLimited) {
				s.logger.Warn("repository listing rate limited, keeping partial results", "org", org, "fetched", len(repos))
			} else {
				s.logger.Warn("failed to list repositories", "org", org, "error", err)
			}
		}
		snap.Repositories = append(snap.Repositories, repos...)
		snap.Commits = append(snap.Commits, s.fetchCommits(ctx, repos)...)
	}

	snap.Contributors = DeriveContributors(snap.Commits)
	return snap
}

// fetchCommits gathers commit histories for a batch of repositories with
// bounded parallelism. Results keep the repository order regardless of which
// fetch finishes first.
func (s *Snapshotter) fetchCommits(ctx context.Context, repos []domain.Repository) []domain.Commit {
	perRepo := make([][]domain.Commit, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(commitConcurrency)
	for i, repo := range repos {
		i, repo := i, repo
		eg.Go(func() error {
			commits, err := s.fetcher.FetchCommits(egCtx, repo.Org, repo.Name, s.opts.MaxCommitsPerRepository)
			switch {
			case errors.Is(err, gateway.ErrRateLimited):
				s.logger.Warn("commit history rate limited, keeping partial results", "org", repo.Org, "repo", repo.Name, "fetched", len(commits))
			case err != nil:
				s.logger.Warn("failed to fetch commits", "org", repo.Org, "repo", repo.Name, "error", err)
			}
			if len(commits) == 0 {
				s.logger.Warn("no commits fetched for repository", "org", repo.Org, "repo", repo.Name)
			}
			perRepo[i] = commits
			return nil
		})
	}
	_ = eg.Wait() // Goroutines contain their own errors.

	var out []domain.Commit
	for _, commits := range perRepo {
		out = append(out, commits...)
	}
	return out
}

// DeriveContributors groups commits by author and aggregates commit counts
// and first/last seen timestamps. It is a pure function: no I/O, and the
// same input always yields the same output. Authors without an email fall
// back to the author name as grouping key. Output is sorted by commit count
// descending, then by grouping key.
func DeriveContributors(commits []domain.Commit) []domain.Contributor {
	byAuthor := make(map[string]*domain.Contributor)
	for _, c := range commits {
		key := c.AuthorEmail
		if key == "" {
			key = c.AuthorName
		}
		cur, ok := byAuthor[key]
		if !ok {
			byAuthor[key] = &domain.Contributor{
				AuthorEmail: c.AuthorEmail,
				AuthorName:  c.AuthorName,
				CommitCount: 1,
				FirstSeen:   c.AuthoredAt,
				LastSeen:    c.AuthoredAt,
			}
			continue
		}
		cur.CommitCount++
		if c.AuthoredAt.Before(cur.FirstSeen) {
			cur.FirstSeen = c.AuthoredAt
		}
		if c.AuthoredAt.After(cur.LastSeen) {
			cur.LastSeen = c.AuthoredAt
		}
	}

	out := make([]domain.Contributor, 0, len(byAuthor))
	for _, contributor := range byAuthor {
		out = append(out, *contributor)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommitCount != out[j].CommitCount {
			return out[i].CommitCount > out[j].CommitCount
		}
		return contributorKey(out[i]) < contributorKey(out[j])
	})
	return out
}

// contributorKey is the identity a contributor was grouped under. Sorting on
// it keeps the output deterministic even for authors without an email, which
// all share an empty AuthorEmail.
func contributorKey(c domain.Contributor) string {
	if c.AuthorEmail != "" {
		return c.AuthorEmail
	}
	return c.AuthorName
}

// Summarize computes the end-of-run report for a snapshot.
func Summarize(snap *domain.Snapshot, organizations int, duration time.Duration) domain.RunSummary {
	summary := domain.RunSummary{
		Organizations:   organizations,
		Repositories:    len(snap.Repositories),
		Commits:         len(snap.Commits),
		Contributors:    len(snap.Contributors),
		DurationSeconds: duration.Seconds(),
	}

	if len(snap.Repositories) == 0 {
		return summary
	}
	byRepo := make(map[string]int)
	for _, c := range snap.Commits {
		byRepo[c.Org+"/"+c.RepoName]++
	}
	counts := make([]float64, 0, len(snap.Repositories))
	for _, r := range snap.Repositories {
		counts = append(counts, float64(byRepo[r.Org+"/"+r.Name]))
	}
	// Mean and Median only fail on empty input, which is excluded above.
	summary.MeanCommitsPerRepo, _ = stats.Mean(counts)
	summary.MedianCommitsPerRepo, _ = stats.Median(counts)
	return summary
}
