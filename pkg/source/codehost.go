package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/flowrank/flowrank/pkg/scoring"
)

const defaultGitHubBaseURL = "https://api.github.com"

// GitHub collects popular workflow repositories from the code search index.
// The upstream has no native view/like counters, so the adapter maps
// stars to likes, watchers to views, open issues to comments and forks to
// replies before scoring.
type GitHub struct {
	client   *http.Client
	token    string
	queries  []string
	perPage  int
	minStars int
	delay    time.Duration
	baseURL  string
}

// NewGitHub creates a new GitHub adapter. The token is optional; unauthenticated
// search works at a lower rate limit.
func NewGitHub(token string, queries []string, delay time.Duration) *GitHub {
	if len(queries) == 0 {
		queries = []string{"n8n workflow", "n8n automation", "n8n nodes", "n8n integration"}
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &GitHub{
		client:   &http.Client{Timeout: 30 * time.Second},
		token:    token,
		queries:  queries,
		perPage:  10,
		minStars: 3,
		delay:    delay,
		baseURL:  defaultGitHubBaseURL,
	}
}

func (g *GitHub) Name() SourceType { return SourceGitHub }
func (g *GitHub) Regional() bool   { return true }

func (g *GitHub) Fetch(ctx context.Context, region string) Result {
	var res Result

	for i, query := range g.queries {
		if i > 0 {
			sleep(ctx, g.delay) // stay under the search rate limit
		}
		if ctx.Err() != nil {
			return res
		}

		records, err := g.search(ctx, query, region)
		if err != nil {
			log.Printf("github: query %q: %v", query, err)
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, records...)
	}

	return res
}

func (g *GitHub) search(ctx context.Context, query, region string) ([]Record, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", fmt.Sprintf("%d", g.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	var result ghSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	var records []Record
	now := time.Now().UTC()

	for _, repo := range result.Items {
		if repo.FullName == "" || repo.Stars < g.minStars {
			continue
		}

		views := repo.Watchers
		likes := repo.Stars
		comments := repo.OpenIssues
		replies := repo.Forks

		records = append(records, Record{
			Workflow: truncate(repo.FullName, maxWorkflowLen),
			Source:   SourceGitHub,
			Region:   region,
			Metrics: Metrics{
				Views:              views,
				Likes:              likes,
				Comments:           comments,
				Replies:            replies,
				LikeToViewRatio:    scoring.Ratio(likes, views),
				CommentToViewRatio: scoring.Ratio(comments, views),
				EngagementScore:    scoring.Engagement(views, likes, comments, replies),
			},
			URL:         repo.HTMLURL,
			CollectedAt: now,
		})
	}

	return records, nil
}

type ghSearchResult struct {
	TotalCount int      `json:"total_count"`
	Items      []ghRepo `json:"items"`
}

type ghRepo struct {
	FullName   string `json:"full_name"`
	HTMLURL    string `json:"html_url"`
	Stars      int    `json:"stargazers_count"`
	Forks      int    `json:"forks_count"`
	Watchers   int    `json:"watchers_count"`
	OpenIssues int    `json:"open_issues_count"`
}
