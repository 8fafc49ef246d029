// Package jsonl parses the organization feed: newline-delimited JSON records,
// many of them truncated or otherwise corrupted. Strict parsing is attempted
// first; failing that, a best-effort recovery pulls the name and the first two
// URLs out of the raw line. The recovery heuristic can mis-assign root/jobs on
// partially truncated lines; that is a known limitation of the feed, not
// something this package tries to second-guess.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/anajobs/anajobs/internal/store"
)

var (
	namePattern     = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	urlPattern      = regexp.MustCompile(`https?://[^\s",%]+`)
	trailingGarbage = regexp.MustCompile(`[^\w\-./:]+$`)
)

// Result is the outcome of one parsing pass over the feed.
type Result struct {
	Organizations []store.Organization
	Lines         int
	Malformed     int
}

// ParseFile parses the feed at path.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// maxLineLength caps how much of a single line is buffered before the line
// is written off as garbage.
const maxLineLength = 1 << 20

// Parse reads the feed line by line. Lines that yield no usable record,
// including lines over maxLineLength, are counted as malformed and skipped;
// only a read failure is an error.
func Parse(r io.Reader) (Result, error) {
	var res Result

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, tooLong, err := readLine(reader)
		if err != nil && err != io.EOF {
			return res, fmt.Errorf("reading data file: %w", err)
		}

		if tooLong {
			res.Lines++
			res.Malformed++
		} else if trimmed := strings.TrimSpace(line); trimmed != "" {
			res.Lines++
			org, ok := parseLine(trimmed)
			if !ok {
				res.Malformed++
			} else {
				res.Organizations = append(res.Organizations, org)
			}
		}

		if err == io.EOF {
			return res, nil
		}
	}
}

// readLine returns the next line, discarding the remainder of any line that
// exceeds maxLineLength and reporting it as tooLong.
func readLine(r *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > maxLineLength {
				tooLong = true
				buf = nil
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if tooLong {
			return "", true, err
		}
		return string(buf), false, err
	}
}

func parseLine(line string) (store.Organization, bool) {
	if org, ok := parseStrict(line); ok {
		return org, true
	}
	return recoverLine(line)
}

// parseStrict accepts a well-formed JSON object with name/root/jobs fields.
func parseStrict(line string) (store.Organization, bool) {
	var raw struct {
		Name string `json:"name"`
		Root string `json:"root"`
		Jobs string `json:"jobs"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return store.Organization{}, false
	}

	org, err := store.NewOrganization(raw.Name, raw.Root, raw.Jobs)
	if err != nil {
		return store.Organization{}, false
	}
	return org, true
}

// recoverLine extracts name and URLs from a corrupted line. The first URL is
// taken as the site root, the second as the jobs page, matching the feed's
// field order.
func recoverLine(line string) (store.Organization, bool) {
	nameMatch := namePattern.FindStringSubmatch(line)
	if nameMatch == nil {
		return store.Organization{}, false
	}

	urls := urlPattern.FindAllString(line, -1)
	if len(urls) < 2 {
		return store.Organization{}, false
	}

	root := trailingGarbage.ReplaceAllString(urls[0], "")
	jobs := trailingGarbage.ReplaceAllString(urls[1], "")

	org, err := store.NewOrganization(nameMatch[1], root, jobs)
	if err != nil {
		return store.Organization{}, false
	}
	return org, true
}
