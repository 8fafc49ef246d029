package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
)

func TestPageText_StripsChrome(t *testing.T) {
	page := `<html><head><title>t</title><style>body{}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<script>var x = 1;</script>
<h1>Open Positions</h1>
<p>Software Engineer</p>
<footer>Copyright</footer>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("User-Agent = %q, want browser-like", ua)
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := NewWithClient(srv.Client()).PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}

	for _, want := range []string{"Open Positions", "Software Engineer"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	for _, skip := range []string{"var x", "body{}", "Home", "Copyright"} {
		if strings.Contains(text, skip) {
			t.Errorf("text should not contain %q:\n%s", skip, text)
		}
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	f := NewWithClient(srv.Client())
	text, err := f.PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if !strings.Contains(text, "ok") {
		t.Errorf("text = %q", text)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestGet_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewWithClient(srv.Client()).PageText(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, 4xx must not be retried", n)
	}
}

func TestDiscoverLinks(t *testing.T) {
	var page string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	page = `<html><body>
<a href="/careers/">Careers</a>
<a href="/about?utm=x#team">About</a>
<a href="/careers">Careers again</a>
<a href="https://facebook.com/org">Facebook</a>
<a href="https://other-site.org/page">Elsewhere</a>
<a href="/report.pdf">Annual report</a>
<a href="mailto:info@example.org">Email</a>
<a href="#top">Top</a>
</body></html>`

	links, err := NewWithClient(srv.Client()).DiscoverLinks(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("DiscoverLinks: %v", err)
	}

	want := []string{srv.URL + "/about", srv.URL + "/careers"}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links = %v, want %v", links, want)
	}
}

func TestCleanLink(t *testing.T) {
	base, _ := url.Parse("https://example.org/")

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/careers/", "https://example.org/careers", true},
		{"/jobs?page=2", "https://example.org/jobs", true},
		{"https://example.org/jobs#listing", "https://example.org/jobs", true},
		{"https://EXAMPLE.ORG/jobs", "https://EXAMPLE.ORG/jobs", true},
		{"https://other.org/jobs", "", false},
		{"mailto:hr@example.org", "", false},
		{"/annual-report.pdf", "", false},
		{"#section", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := cleanLink(base, tt.href)
		if ok != tt.ok || got != tt.want {
			t.Errorf("cleanLink(%q) = (%q, %v), want (%q, %v)", tt.href, got, ok, tt.want, tt.ok)
		}
	}
}

func TestJobRelated(t *testing.T) {
	tests := []struct {
		href, text string
		want       bool
	}{
		{"/open-positions", "", true},
		{"/about", "Current Job Openings", true},
		{"/listings", "Opportunities", true},
		{"/about", "Our Mission", false},
		{"/team", "Board of Directors", false},
	}
	for _, tt := range tests {
		if got := jobRelated(tt.href, tt.text); got != tt.want {
			t.Errorf("jobRelated(%q, %q) = %v, want %v", tt.href, tt.text, got, tt.want)
		}
	}
}

func TestAggregateJobContent(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<h1>Work with us</h1>
<a href="/careers/engineer-opening">Engineer opening</a>
<a href="/about">About</a>
</body></html>`))
	})
	mux.HandleFunc("/careers/engineer-opening", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Software Engineer</h1></body></html>"))
	})

	content, err := NewWithClient(srv.Client()).AggregateJobContent(context.Background(), srv.URL+"/careers", 10)
	if err != nil {
		t.Fatalf("AggregateJobContent: %v", err)
	}

	if !strings.Contains(content, "=== CAREERS ROOT PAGE: "+srv.URL+"/careers ===") {
		t.Errorf("missing root page label:\n%s", content)
	}
	if !strings.Contains(content, "=== JOB PAGE: "+srv.URL+"/careers/engineer-opening ===") {
		t.Errorf("missing job page label:\n%s", content)
	}
	if !strings.Contains(content, "Software Engineer") {
		t.Errorf("missing job page content:\n%s", content)
	}
	if strings.Contains(content, "/about") {
		t.Errorf("non-job link should not be followed:\n%s", content)
	}
}

func TestAggregateJobContent_RespectsMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<a href="/careers/job-a">Job A</a>
<a href="/careers/job-b">Job B</a>
<a href="/careers/job-c">Job C</a>
</body></html>`))
	})
	for _, p := range []string{"/careers/job-a", "/careers/job-b", "/careers/job-c"} {
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<p>listing</p>"))
		})
	}

	content, err := NewWithClient(srv.Client()).AggregateJobContent(context.Background(), srv.URL+"/careers", 2)
	if err != nil {
		t.Fatalf("AggregateJobContent: %v", err)
	}
	if n := strings.Count(content, "=== JOB PAGE:"); n != 1 {
		t.Errorf("followed %d job pages, want 1 (maxPages=2 includes the root)", n)
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF("application/pdf", nil) {
		t.Error("content type should mark PDF")
	}
	if !isPDF("text/html", []byte("%PDF-1.7 rest")) {
		t.Error("magic bytes should mark PDF")
	}
	if isPDF("text/html", []byte("<html>")) {
		t.Error("plain HTML marked as PDF")
	}
}
