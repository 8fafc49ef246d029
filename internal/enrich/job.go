// Package enrich walks unscraped organizations, discovers their careers
// pages and extracts current job titles via a language model.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anajobs/anajobs/internal/claude"
	"github.com/anajobs/anajobs/internal/store"
)

// Directory is the slice of the organization store the runner needs.
type Directory interface {
	Unscraped(ctx context.Context, limit int64) ([]store.Organization, error)
	SetJobTitles(ctx context.Context, name, jobsURL string, titles []string) error
	UpdateScrapeStatus(ctx context.Context, name string, ok bool, errMsg string) error
}

// Fetcher retrieves and aggregates page content.
type Fetcher interface {
	DiscoverLinks(ctx context.Context, rootURL string) ([]string, error)
	AggregateJobContent(ctx context.Context, careersURL string, maxPages int) (string, error)
}

// Extractor answers careers-URL and job-title questions about page content.
type Extractor interface {
	IdentifyCareersURL(ctx context.Context, orgName string, links []string) (string, error)
	ExtractJobTitles(ctx context.Context, orgName, content string) ([]string, error)
}

// Options controls a single enrichment run.
type Options struct {
	// Limit caps how many organizations are processed; 0 means all unscraped.
	Limit int64
	// TestMode prints extracted titles without writing to the store.
	TestMode bool
	// MaxPages caps pages aggregated per organization.
	MaxPages int
	// Delay is the pause between organizations.
	Delay time.Duration
}

// Summary reports what a run accomplished.
type Summary struct {
	RunID          string
	Processed      int
	Updated        int
	TitlesFound    int
	URLDiscoveries int
	Failed         int
}

// Runner executes enrichment passes over the directory.
type Runner struct {
	dir     Directory
	fetcher Fetcher
	ext     Extractor
	logger  *slog.Logger
}

func NewRunner(dir Directory, fetcher Fetcher, ext Extractor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{dir: dir, fetcher: fetcher, ext: ext, logger: logger}
}

// Run processes unscraped organizations sequentially. Per-organization
// failures are recorded and skipped; a permanent API failure (bad key,
// malformed request) halts the run and returns the partial summary alongside
// the error.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}

	orgs, err := r.dir.Unscraped(ctx, opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("listing unscraped organizations: %w", err)
	}
	r.logger.Info("starting enrichment run",
		"run_id", summary.RunID, "organizations", len(orgs), "test_mode", opts.TestMode)

	for i, org := range orgs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}

		summary.Processed++
		titles, careersURL, err := r.enrichOne(ctx, org, opts)
		if err != nil {
			if claude.IsPermanent(err) || errors.Is(err, context.Canceled) {
				return summary, fmt.Errorf("enriching %q: %w", org.Name, err)
			}
			summary.Failed++
			r.logger.Warn("organization failed", "org", org.Name, "error", err)
			if !opts.TestMode {
				if serr := r.dir.UpdateScrapeStatus(ctx, org.Name, false, err.Error()); serr != nil {
					r.logger.Error("recording failure", "org", org.Name, "error", serr)
				}
			}
			continue
		}

		if len(titles) > 0 {
			summary.TitlesFound += len(titles)
		}
		if careersURL != "" && careersURL != org.Jobs {
			summary.URLDiscoveries++
		}

		if opts.TestMode {
			fmt.Printf("%s: %d titles\n", org.Name, len(titles))
			for _, t := range titles {
				fmt.Printf("  - %s\n", t)
			}
			continue
		}

		jobsURL := ""
		if careersURL != org.Jobs {
			jobsURL = careersURL
		}
		if err := r.dir.SetJobTitles(ctx, org.Name, jobsURL, titles); err != nil {
			summary.Failed++
			r.logger.Error("persisting titles", "org", org.Name, "error", err)
			continue
		}
		summary.Updated++
		r.logger.Info("organization enriched", "org", org.Name, "titles", len(titles))
	}

	r.logger.Info("enrichment run finished",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"updated", summary.Updated,
		"titles", summary.TitlesFound,
		"failed", summary.Failed)
	return summary, nil
}

// enrichOne resolves one organization's careers page and extracts titles.
// The recorded jobs URL is tried first; if fetching it fails, the root page
// is scanned and the model is asked to pick the careers link. A nil title
// slice with no error means no openings were found; callers persist that as
// an explicit null so the organization is not revisited.
func (r *Runner) enrichOne(ctx context.Context, org store.Organization, opts Options) ([]string, string, error) {
	careersURL := org.Jobs
	var content string
	var err error

	if careersURL != "" {
		content, err = r.fetcher.AggregateJobContent(ctx, careersURL, opts.MaxPages)
		if err != nil {
			r.logger.Debug("recorded jobs url unreachable, falling back to discovery",
				"org", org.Name, "jobs_url", careersURL, "error", err)
			careersURL = ""
		}
	}

	if careersURL == "" {
		careersURL, err = r.discoverCareersURL(ctx, org)
		if err != nil {
			return nil, "", err
		}
		if careersURL == "" {
			r.logger.Info("no careers page found", "org", org.Name)
			return nil, "", nil
		}
		content, err = r.fetcher.AggregateJobContent(ctx, careersURL, opts.MaxPages)
		if err != nil {
			return nil, careersURL, fmt.Errorf("aggregating content from %s: %w", careersURL, err)
		}
	}

	if content == "" {
		return nil, careersURL, nil
	}

	titles, err := r.ext.ExtractJobTitles(ctx, org.Name, content)
	if err != nil {
		return nil, careersURL, err
	}
	return titles, careersURL, nil
}

// discoverCareersURL scans the organization's root page and asks the model
// to pick the careers link out of the discovered URLs.
func (r *Runner) discoverCareersURL(ctx context.Context, org store.Organization) (string, error) {
	links, err := r.fetcher.DiscoverLinks(ctx, org.Root)
	if err != nil {
		return "", fmt.Errorf("scanning main page %s: %w", org.Root, err)
	}
	return r.ext.IdentifyCareersURL(ctx, org.Name, links)
}
