// Package config loads and validates the application configuration from
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/viper"
)

// ErrNoOrganizations is returned when the organization list is empty.
var ErrNoOrganizations = errors.New("ORGANIZATIONS must contain at least one organization")

// ErrInvalidOrganization is returned when an organization name is not a valid
// GitHub account slug.
type ErrInvalidOrganization struct {
	Org string
}

func (e *ErrInvalidOrganization) Error() string {
	return fmt.Sprintf("invalid organization name: %q", e.Org)
}

// ErrInvalidLimit is returned when a fetch cap is zero or negative.
type ErrInvalidLimit struct {
	Field string
	Value int
}

func (e *ErrInvalidLimit) Error() string {
	return fmt.Sprintf("%s must be greater than zero, got %d", e.Field, e.Value)
}

// GitHub account names: alphanumeric and hyphens, no leading/trailing hyphen.
var orgNamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)

// Config holds all configuration for a fetch run.
type Config struct {
	LogLevel                string   `mapstructure:"LOG_LEVEL"`
	Organizations           []string `mapstructure:"ORGANIZATIONS"`
	MaxRepositories         int      `mapstructure:"MAX_REPOSITORIES"`
	MaxCommitsPerRepository int      `mapstructure:"MAX_COMMITS_PER_REPOSITORY"`
	GithubToken             string   `mapstructure:"GITHUB_TOKEN"`
	OutputDir               string   `mapstructure:"OUTPUT_DIR"`
}

// Load reads configuration from the environment and, if present, a .env file
// in the working directory. ORGANIZATIONS is comma-separated when it comes
// from the environment. Load does not validate; call Validate after any
// flag overrides have been applied.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REPOSITORIES", 10)
	v.SetDefault("MAX_COMMITS_PER_REPOSITORY", 200)
	v.SetDefault("OUTPUT_DIR", ".")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found.

	v.AutomaticEnv()
	for _, key := range []string{
		"LOG_LEVEL", "ORGANIZATIONS", "MAX_REPOSITORIES",
		"MAX_COMMITS_PER_REPOSITORY", "GITHUB_TOKEN", "OUTPUT_DIR",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration before any network call is made.
func (c *Config) Validate() error {
	if len(c.Organizations) == 0 {
		return ErrNoOrganizations
	}
	for _, org := range c.Organizations {
		if !orgNamePattern.MatchString(org) {
			return &ErrInvalidOrganization{Org: org}
		}
	}
	if c.MaxRepositories <= 0 {
		return &ErrInvalidLimit{Field: "MAX_REPOSITORIES", Value: c.MaxRepositories}
	}
	if c.MaxCommitsPerRepository <= 0 {
		return &ErrInvalidLimit{Field: "MAX_COMMITS_PER_REPOSITORY", Value: c.MaxCommitsPerRepository}
	}
	return nil
}
