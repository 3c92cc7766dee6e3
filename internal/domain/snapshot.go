// Package domain contains the core data structures for the application.
package domain

import "time"

// Repository is one row of the repositories dataset. The csv tags are the
// column contract the dashboard reads; do not rename them.
type Repository struct {
	Org         string    `csv:"org" json:"org"`
	Name        string    `csv:"repo_name" json:"repo_name"`
	ID          int64     `csv:"repo_id" json:"repo_id"`
	Stars       int       `csv:"stars" json:"stars"`
	Forks       int       `csv:"forks" json:"forks"`
	OpenIssues  int       `csv:"open_issues" json:"open_issues"`
	Watchers    int       `csv:"watchers" json:"watchers"`
	Language    string    `csv:"language" json:"language"`
	CreatedAt   time.Time `csv:"created_at" json:"created_at"`
	UpdatedAt   time.Time `csv:"updated_at" json:"updated_at"`
	Description string    `csv:"description" json:"description"`
}

// Commit is one row of the commits dataset. DayOfWeek and HourOfDay are
// derived from the authored timestamp when the record is shaped, so the
// dashboard never has to parse dates. Additions and Deletions stay zero:
// filling them would cost one extra API call per commit.
type Commit struct {
	Org         string    `csv:"org" json:"org"`
	RepoName    string    `csv:"repo_name" json:"repo_name"`
	SHA         string    `csv:"commit_sha" json:"commit_sha"`
	AuthorName  string    `csv:"author" json:"author"`
	AuthorEmail string    `csv:"author_email" json:"author_email"`
	Message     string    `csv:"message" json:"message"`
	AuthoredAt  time.Time `csv:"date" json:"date"`
	DayOfWeek   string    `csv:"day_of_week" json:"day_of_week"`
	HourOfDay   int       `csv:"hour_of_day" json:"hour_of_day"`
	Additions   int       `csv:"additions" json:"additions"`
	Deletions   int       `csv:"deletions" json:"deletions"`
}

// Contributor is one row of the contributors dataset, aggregated from the
// fetched commits rather than queried from the API.
type Contributor struct {
	AuthorEmail string    `csv:"author_email" json:"author_email"`
	AuthorName  string    `csv:"author_name" json:"author_name"`
	CommitCount int       `csv:"commit_count" json:"commit_count"`
	FirstSeen   time.Time `csv:"first_seen" json:"first_seen"`
	LastSeen    time.Time `csv:"last_seen" json:"last_seen"`
}

// Snapshot is the full output of one fetch run. The three datasets are
// written together and replace the previous snapshot as a unit.
type Snapshot struct {
	Repositories []Repository
	Commits      []Commit
	Contributors []Contributor
}

// RunSummary describes a completed fetch run. Printed as JSON at the end of
// a run.
type RunSummary struct {
	Organizations        int     `json:"organizations"`
	Repositories         int     `json:"repositories"`
	Commits              int     `json:"commits"`
	Contributors         int     `json:"contributors"`
	MeanCommitsPerRepo   float64 `json:"mean_commits_per_repo"`
	MedianCommitsPerRepo float64 `json:"median_commits_per_repo"`
	DurationSeconds      float64 `json:"duration_seconds"`
}
