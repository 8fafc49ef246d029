package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Integration tests run against a real MongoDB instance. They are skipped
// unless ANAJOBS_TEST_MONGO_URI is set, e.g.:
//
//	ANAJOBS_TEST_MONGO_URI=mongodb://localhost:27017/ go test ./internal/store/
func testClient(t *testing.T) *Client {
	t.Helper()
	uri := os.Getenv("ANAJOBS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ANAJOBS_TEST_MONGO_URI not set")
	}

	// Fresh collection per test so runs cannot interfere.
	c := New(uri, "anajobs_test", "organizations_"+uuid.NewString()[:8])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.collection.Drop(ctx)
		c.Close(ctx)
	})
	return c
}

func seedOrgs(n int) []Organization {
	orgs := make([]Organization, 0, n)
	for i := range n {
		orgs = append(orgs, Organization{
			Name:   fmt.Sprintf("Test Org %d", i),
			Root:   fmt.Sprintf("https://org-%d.org", i),
			Jobs:   fmt.Sprintf("https://org-%d.org/careers", i),
			Status: StatusActive,
		})
	}
	return orgs
}

func TestSetupCollection_Idempotent(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("first SetupCollection: %v", err)
	}
	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("second SetupCollection: %v", err)
	}
}

func TestPopulate_UpsertsByName(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("SetupCollection: %v", err)
	}

	res, err := c.Populate(ctx, seedOrgs(3))
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}

	// Loading the same feed again must not duplicate records.
	changed := seedOrgs(3)
	changed[0].Jobs = "https://org-0.org/jobs"
	res, err = c.Populate(ctx, changed)
	if err != nil {
		t.Fatalf("second Populate: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0 on reload", res.Inserted)
	}
	if res.Updated != 1 {
		t.Errorf("Updated = %d, want 1 for the changed record", res.Updated)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}

	org, err := c.FindByName(ctx, "Test Org 0")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if org.Jobs != "https://org-0.org/jobs" {
		t.Errorf("Jobs = %q, reload did not update", org.Jobs)
	}
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("SetupCollection: %v", err)
	}
	orgs := []Organization{
		{Name: "American Red Cross", Root: "https://www.redcross.org", Jobs: "https://www.redcross.org/careers", Status: StatusActive},
		{Name: "Save the Children", Root: "https://www.savethechildren.org", Jobs: "https://www.savethechildren.org/careers", Status: StatusActive},
	}
	if _, err := c.Populate(ctx, orgs); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	got, err := c.Search(ctx, "red cross", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "American Red Cross" {
		t.Errorf("Search = %+v", got)
	}

	// Regex metacharacters in the term are literals, not patterns.
	got, err = c.Search(ctx, ".*", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search(.*) matched %d records, term must be quoted", len(got))
	}
}

func TestSetJobTitles(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("SetupCollection: %v", err)
	}
	if _, err := c.Populate(ctx, seedOrgs(1)); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	titles := []string{"Software Engineer", "Grant Writer"}
	if err := c.SetJobTitles(ctx, "Test Org 0", "", titles); err != nil {
		t.Fatalf("SetJobTitles: %v", err)
	}

	org, err := c.FindByName(ctx, "Test Org 0")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(org.JobTitles) != 2 {
		t.Errorf("JobTitles = %v", org.JobTitles)
	}
	if org.JobTitlesMethod != ExtractionMethodClaude {
		t.Errorf("JobTitlesMethod = %q", org.JobTitlesMethod)
	}
	if !org.Scraped {
		t.Error("organization should be marked scraped")
	}
	if org.JobTitlesUpdatedAt == nil || org.LastScraped == nil {
		t.Error("timestamps not set")
	}

	// The organization is no longer in the unscraped set.
	unscraped, err := c.Unscraped(ctx, 0)
	if err != nil {
		t.Fatalf("Unscraped: %v", err)
	}
	if len(unscraped) != 0 {
		t.Errorf("Unscraped = %+v", unscraped)
	}
}

func TestTestDatabase(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.SetupCollection(ctx); err != nil {
		t.Fatalf("SetupCollection: %v", err)
	}
	orgs := []Organization{
		{Name: "American Red Cross", Root: "https://www.redcross.org", Jobs: "https://www.redcross.org/careers", Status: StatusActive},
	}
	if _, err := c.Populate(ctx, orgs); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	report, err := c.TestDatabase(ctx, "American Red Cross")
	if err != nil {
		t.Fatalf("TestDatabase: %v", err)
	}
	if !report.Passed() {
		t.Errorf("report did not pass: %+v", report.Checks)
	}
	if report.Count != 1 {
		t.Errorf("Count = %d", report.Count)
	}
	if report.Org == nil || report.Org.Name != "American Red Cross" {
		t.Errorf("Org = %+v", report.Org)
	}
}
