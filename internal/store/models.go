package store

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Organization statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// ExtractionMethodClaude tags job title lists produced by the AI enrichment job.
const ExtractionMethodClaude = "claude_ai"

var urlPattern = regexp.MustCompile(`^https?://`)

// Organization is one nonprofit record in the organizations collection.
// Name is the unique key; Root and Jobs must be http(s) URLs.
type Organization struct {
	Name               string     `bson:"name" json:"name"`
	Root               string     `bson:"root" json:"root"`
	Jobs               string     `bson:"jobs" json:"jobs"`
	Status             string     `bson:"status" json:"status"`
	Scraped            bool       `bson:"scraped" json:"scraped"`
	CreatedAt          time.Time  `bson:"created_at,omitempty" json:"created_at,omitempty"`
	LastScraped        *time.Time `bson:"last_scraped,omitempty" json:"last_scraped,omitempty"`
	LastError          string     `bson:"last_error,omitempty" json:"last_error,omitempty"`
	JobTitles          []string   `bson:"job_titles,omitempty" json:"job_titles,omitempty"`
	JobTitlesMethod    string     `bson:"job_titles_extraction_method,omitempty" json:"job_titles_extraction_method,omitempty"`
	JobTitlesUpdatedAt *time.Time `bson:"job_titles_updated_at,omitempty" json:"job_titles_updated_at,omitempty"`
}

// NewOrganization builds a validated record with defaults applied.
func NewOrganization(name, root, jobs string) (Organization, error) {
	org := Organization{
		Name:   name,
		Root:   root,
		Jobs:   jobs,
		Status: StatusActive,
	}
	if err := org.Validate(); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// Validate enforces the record invariants: non-empty unique key, URL-shaped
// root and jobs fields, status restricted to the known set.
func (o Organization) Validate() error {
	if o.Name == "" {
		return errors.New("organization name is required")
	}
	if !urlPattern.MatchString(o.Root) {
		return fmt.Errorf("organization %q: root %q is not an http(s) URL", o.Name, o.Root)
	}
	if !urlPattern.MatchString(o.Jobs) {
		return fmt.Errorf("organization %q: jobs %q is not an http(s) URL", o.Name, o.Jobs)
	}
	switch o.Status {
	case StatusActive, StatusInactive, StatusPending:
	default:
		return fmt.Errorf("organization %q: invalid status %q", o.Name, o.Status)
	}
	return nil
}

// PopulateResult reports what an upsert pass did.
type PopulateResult struct {
	Inserted int
	Updated  int
}

// Stats is the aggregate view behind the stats command.
type Stats struct {
	Total         int64 `json:"total"`
	Scraped       int64 `json:"scraped"`
	WithJobTitles int64 `json:"with_job_titles"`
	OrgDomains    int64 `json:"org_domains"`
}

// Check is one entry in a sanity test report.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// TestReport is the structured result of TestDatabase. Individual check
// failures are recorded here rather than returned as errors.
type TestReport struct {
	Checks []Check        `json:"checks"`
	Count  int64          `json:"count"`
	Org    *Organization  `json:"org,omitempty"`
	Sample []Organization `json:"sample,omitempty"`
}

func (r *TestReport) add(name string, passed bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Detail: detail})
}

// Passed reports whether every check in the report succeeded.
func (r *TestReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return len(r.Checks) > 0
}
