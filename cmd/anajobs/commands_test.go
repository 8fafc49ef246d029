package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anajobs/anajobs/internal/store"
)

type stubTester struct {
	report *store.TestReport
	err    error
}

func (s *stubTester) TestDatabase(ctx context.Context, orgName string) (*store.TestReport, error) {
	return s.report, s.err
}

func TestRunDatabaseTest_FailedChecksExitZero(t *testing.T) {
	// A check failure (e.g. the named organization not loaded yet) is
	// reported in the output; only connection-level failures change the
	// exit code.
	report := &store.TestReport{}
	report.Checks = []store.Check{
		{Name: "connectivity", Passed: true, Detail: "ping ok"},
		{Name: "named query", Passed: false, Detail: `no organization named "American Red Cross"`},
	}

	if err := runDatabaseTest(context.Background(), &stubTester{report: report}, "American Red Cross"); err != nil {
		t.Errorf("runDatabaseTest returned %v, failed checks must not produce an error", err)
	}
}

func TestRunDatabaseTest_ConnectionFailureErrors(t *testing.T) {
	stub := &stubTester{err: errors.New("server selection timeout")}
	if err := runDatabaseTest(context.Background(), stub, "American Red Cross"); err == nil {
		t.Error("expected error when the database is unreachable")
	}
}

func TestConfirmFullRun(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"YES\n", true},
		{"  YES  \n", true},
		{"yes\n", false},
		{"Y\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false}, // EOF before any input
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := confirmFullRun(strings.NewReader(tt.input), &out)
		if got != tt.want {
			t.Errorf("confirmFullRun(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Type YES to continue") {
			t.Errorf("prompt missing from output: %q", out.String())
		}
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(ansiGreen, "done"); got != "done" {
		t.Errorf("colorize with noColor=true = %q", got)
	}

	noColor = false
	got := colorize(ansiGreen, "done")
	if !strings.Contains(got, "\033[32m") || !strings.HasSuffix(got, ansiReset) {
		t.Errorf("colorize with noColor=false = %q", got)
	}
}

func TestSearchCommand_RequiresTerm(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"search"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error when no search term is given")
	}
}

func TestConfigSetCommand_RequiresKeyAndValue(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"config", "set", "mongo.uri"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing value argument")
	}
}
