package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anajobs/anajobs/internal/store"
)

type mockDir struct {
	orgs      []store.Organization
	stats     store.Stats
	err       error
	lastTerm  string
	lastLimit int64
}

func (m *mockDir) Search(ctx context.Context, term string, limit int64) ([]store.Organization, error) {
	m.lastTerm, m.lastLimit = term, limit
	return m.orgs, m.err
}

func (m *mockDir) ByDomain(ctx context.Context, suffix string) ([]store.Organization, error) {
	return m.orgs, m.err
}

func (m *mockDir) FindByName(ctx context.Context, name string) (*store.Organization, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.orgs {
		if m.orgs[i].Name == name {
			return &m.orgs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockDir) Stats(ctx context.Context) (store.Stats, error) {
	return m.stats, m.err
}

func doRequest(t *testing.T, dir *mockDir, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	NewHandler(dir).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, &mockDir{}, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"ok"}` {
		t.Errorf("body = %q", got)
	}
}

func TestSearch(t *testing.T) {
	dir := &mockDir{orgs: []store.Organization{{Name: "American Red Cross"}}}
	rec := doRequest(t, dir, "/search?q=red+cross&limit=5")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if dir.lastTerm != "red cross" || dir.lastLimit != 5 {
		t.Errorf("search called with (%q, %d)", dir.lastTerm, dir.lastLimit)
	}

	var body struct {
		Organizations []store.Organization `json:"organizations"`
		Count         int                  `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Count != 1 || body.Organizations[0].Name != "American Red Cross" {
		t.Errorf("body = %+v", body)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	rec := doRequest(t, &mockDir{}, "/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	assertErrorEnvelope(t, rec, "invalid_request_error")
}

func TestSearch_ClampsLimit(t *testing.T) {
	dir := &mockDir{}
	doRequest(t, dir, "/search?q=x&limit=500")
	if dir.lastLimit != maxSearchLimit {
		t.Errorf("limit = %d, want clamped to %d", dir.lastLimit, maxSearchLimit)
	}
}

func TestSearch_RejectsBadLimit(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0"} {
		rec := doRequest(t, &mockDir{}, "/search?q=x&limit="+raw)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestOrganization_NotFound(t *testing.T) {
	rec := doRequest(t, &mockDir{}, "/organizations/Nobody")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertErrorEnvelope(t, rec, "not_found_error")
}

func TestOrganization_Found(t *testing.T) {
	dir := &mockDir{orgs: []store.Organization{{Name: "Oxfam", Root: "https://www.oxfam.org"}}}
	rec := doRequest(t, dir, "/organizations/Oxfam")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var org store.Organization
	if err := json.Unmarshal(rec.Body.Bytes(), &org); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if org.Root != "https://www.oxfam.org" {
		t.Errorf("org = %+v", org)
	}
}

func TestStats_StoreError(t *testing.T) {
	rec := doRequest(t, &mockDir{err: errors.New("connection reset")}, "/stats")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	assertErrorEnvelope(t, rec, "api_error")
}

func assertErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder, wantType string) {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if body.Error.Type != wantType {
		t.Errorf("error type = %q, want %q", body.Error.Type, wantType)
	}
	if body.Error.Message == "" {
		t.Error("error message is empty")
	}
}
