package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxLinksForDiscovery = 50
	careersMaxTokens     = 200
	titlesMaxTokens      = 2000
)

// IdentifyCareersURL asks the model to pick the careers page out of the links
// found on an organization's main page. It returns "" when the model finds no
// plausible careers URL or suggests a URL outside the provided set.
func (c *Client) IdentifyCareersURL(ctx context.Context, orgName string, links []string) (string, error) {
	if len(links) == 0 {
		return "", nil
	}
	if len(links) > maxLinksForDiscovery {
		links = links[:maxLinksForDiscovery]
	}

	var urls strings.Builder
	for _, l := range links {
		fmt.Fprintf(&urls, "- %s\n", l)
	}

	prompt := fmt.Sprintf(`You are an expert at identifying career/job pages from website navigation links.

ORGANIZATION: %s

TASK: From the following list of URLs found on this organization's main page, identify the SINGLE URL that is most likely to be the careers/jobs page where job openings would be listed.

Look for URLs that contain terms like:
- careers, jobs, openings, positions, opportunities, employment, hiring, work-with-us, join-us, join-our-team, etc.
- Common patterns: /careers, /jobs, /get-involved/careers, /about/careers, /opportunities, /work-with-us, etc.

MAIN PAGE LINKS:
%s
INSTRUCTIONS:
1. Return ONLY the single most likely careers/jobs URL
2. If no obvious careers URL exists, return "NONE"
3. Do not return multiple URLs - pick the best one
4. Return just the URL, nothing else
5. Focus on URLs that would logically contain job listings

Your response:`, orgName, urls.String())

	response, err := c.Complete(ctx, prompt, careersMaxTokens)
	if err != nil {
		return "", fmt.Errorf("identifying careers url: %w", err)
	}

	response = strings.TrimSpace(response)
	if response == "NONE" || !strings.HasPrefix(response, "http") {
		return "", nil
	}
	// Only accept URLs that actually appear on the page.
	for _, l := range links {
		if l == response {
			return response, nil
		}
	}
	return "", nil
}

// ExtractJobTitles asks the model to pull exact job titles out of aggregated
// career page content. Returns nil when no usable titles are found.
func (c *Client) ExtractJobTitles(ctx context.Context, orgName, content string) ([]string, error) {
	prompt := fmt.Sprintf(`You are an expert at extracting job titles from career page content. Your task is to extract ONLY the exact job titles/position names from the provided career page content.

ORGANIZATION: %s

INSTRUCTIONS:
1. Extract ONLY actual job titles/position names that are currently open positions
2. Do NOT include:
   - General descriptions
   - Requirements text
   - Company information
   - Navigation elements
   - Button text (like "Apply Now", "Learn More")
   - Department names alone (unless they are actual job titles)
   - Page headers/footers
3. Return job titles exactly as they appear (preserve capitalization and formatting)
4. If you find duplicate titles, include only one instance
5. Return ONLY a valid JSON array of strings, nothing else

EXAMPLES of what to extract:
- "Software Engineer"
- "Senior Data Scientist"
- "Program Manager, Climate Policy"
- "Director of Marketing"

EXAMPLES of what NOT to extract:
- "Apply Now"
- "Engineering" (department name only)
- "We are looking for talented individuals"
- "View Details"

CAREER PAGE CONTENT:
%s

Return only the JSON array of job titles:`, orgName, content)

	response, err := c.Complete(ctx, prompt, titlesMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extracting job titles: %w", err)
	}

	return parseTitleArray(response), nil
}

// parseTitleArray pulls a JSON string array out of model output, tolerating
// surrounding prose. Titles are trimmed, length-filtered and deduplicated.
func parseTitleArray(response string) []string {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end <= start {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	var titles []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if len(t) <= 2 || len(t) >= 100 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		titles = append(titles, t)
	}
	return titles
}
