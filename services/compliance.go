package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"

	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

// ComplianceChecker answers whether URLs may be crawled according to a site's
// robots.txt. It is advisory: the scraping stages never consult it.
type ComplianceChecker struct {
	client *http.Client
	agent  string
	logger *utils.Logger

	robots *robotstxt.RobotsData
}

// NewComplianceChecker creates a checker that tests URLs for the given user agent.
func NewComplianceChecker(client *http.Client, agent string, logger *utils.Logger) *ComplianceChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if agent == "" {
		agent = "*"
	}
	return &ComplianceChecker{client: client, agent: agent, logger: logger}
}

// Fetch downloads and parses the robots policy. 401 and 403 disallow
// everything, any other 4xx allows everything, 5xx disallows everything.
func (c *ComplianceChecker) Fetch(ctx context.Context, robotsURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return fmt.Errorf("robots: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("robots: fetch %s: %w", robotsURL, err)
	}
	defer resp.Body.Close()

	var robots *robotstxt.RobotsData
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		robots, err = robotstxt.FromStatusAndBytes(http.StatusServiceUnavailable, nil)
	default:
		robots, err = robotstxt.FromResponse(resp)
	}
	if err != nil {
		return fmt.Errorf("robots: parse %s: %w", robotsURL, err)
	}
	c.robots = robots
	c.logger.Info("[compliance] Loaded robots policy from %s (status %d)", robotsURL, resp.StatusCode)
	return nil
}

// Allowed reports whether rawURL may be crawled. It must be called after Fetch.
func (c *ComplianceChecker) Allowed(rawURL string) bool {
	if c.robots == nil {
		return false
	}
	return c.robots.TestAgent(robotsPath(rawURL), c.agent)
}

// Check answers every URL in order.
func (c *ComplianceChecker) Check(urls []string) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(urls))
	for _, u := range urls {
		verdicts = append(verdicts, models.Verdict{URL: u, Allowed: c.Allowed(u)})
	}
	return verdicts
}

// PrintVerdicts writes one line per verdict.
func PrintVerdicts(w io.Writer, verdicts []models.Verdict) {
	for _, v := range verdicts {
		if v.Allowed {
			fmt.Fprintf(w, "URL %s is allowed to be crawled.\n", v.URL)
		} else {
			fmt.Fprintf(w, "URL %s is NOT allowed to be crawled.\n", v.URL)
		}
	}
}

// robotsPath reduces a URL to the path and query robots rules match against.
func robotsPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
