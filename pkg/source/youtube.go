package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowrank/flowrank/internal/metrics"
	"github.com/flowrank/flowrank/pkg/keypool"
	"github.com/flowrank/flowrank/pkg/scoring"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"

// errPoolExhausted signals that every credential in the pool failed; the
// adapter stops its remaining work and returns whatever it already has.
var errPoolExhausted = errors.New("youtube: credential pool exhausted")

// YouTube collects popular workflow videos via keyword search plus a batch
// statistics call, rotating API keys through the pool on any non-success
// response.
type YouTube struct {
	client      *http.Client
	pool        *keypool.Pool
	keywords    []string
	maxKeywords int
	minViews    int
	delay       time.Duration
	baseURL     string
}

// NewYouTube creates a new YouTube adapter. maxKeywords bounds how many of the
// configured keywords are searched per cycle to respect quota budgets.
func NewYouTube(pool *keypool.Pool, keywords []string, maxKeywords int, delay time.Duration) *YouTube {
	if maxKeywords <= 0 {
		maxKeywords = 15
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &YouTube{
		client:      &http.Client{Timeout: 30 * time.Second},
		pool:        pool,
		keywords:    keywords,
		maxKeywords: maxKeywords,
		minViews:    100,
		delay:       delay,
		baseURL:     defaultYouTubeBaseURL,
	}
}

func (y *YouTube) Name() SourceType { return SourceYouTube }
func (y *YouTube) Regional() bool   { return true }

func (y *YouTube) Fetch(ctx context.Context, region string) Result {
	var res Result

	if _, ok := y.pool.Current(); !ok {
		log.Printf("youtube: no API key available, skipping collection for %s", region)
		return res
	}

	keywords := y.keywords
	if len(keywords) > y.maxKeywords {
		keywords = keywords[:y.maxKeywords]
	}

	for i, keyword := range keywords {
		if i > 0 {
			sleep(ctx, y.delay) // self-imposed rate limit between keywords
		}
		if ctx.Err() != nil {
			return res
		}

		ids, err := y.search(ctx, keyword, region)
		if errors.Is(err, errPoolExhausted) {
			log.Printf("youtube: all credentials exhausted, returning partial results (%d records)", len(res.Records))
			return res
		}
		if err != nil {
			log.Printf("youtube: keyword %q: %v", keyword, err)
			res.Dropped++
			continue
		}
		if len(ids) == 0 {
			continue
		}

		records, dropped, err := y.stats(ctx, ids, region)
		if errors.Is(err, errPoolExhausted) {
			log.Printf("youtube: all credentials exhausted, returning partial results (%d records)", len(res.Records))
			return res
		}
		if err != nil {
			log.Printf("youtube: stats for %q: %v", keyword, err)
			res.Dropped++
			continue
		}

		res.Records = append(res.Records, records...)
		res.Dropped += dropped
	}

	return res
}

// get issues one API call, rotating to the next credential on any non-success
// status until the pool runs out.
func (y *YouTube) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	for attempt := 0; attempt <= y.pool.Size(); attempt++ {
		key, ok := y.pool.Current()
		if !ok {
			return nil, errPoolExhausted
		}
		params.Set("key", key)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := y.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", endpoint, err)
			}
			return body, nil
		}
		resp.Body.Close()

		// Quota or auth failure, or anything else non-success: burn this
		// credential and retry with the next one.
		log.Printf("youtube: %s status %d, rotating credential", endpoint, resp.StatusCode)
		metrics.CredentialRotations.Inc()
		if !y.pool.Rotate() {
			return nil, errPoolExhausted
		}
	}
	return nil, errPoolExhausted
}

func (y *YouTube) search(ctx context.Context, keyword, region string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", keyword)
	params.Set("type", "video")
	params.Set("maxResults", "5")
	params.Set("regionCode", region)
	params.Set("order", "relevance")

	body, err := y.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	var result ytSearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	var ids []string
	for _, item := range result.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

func (y *YouTube) stats(ctx context.Context, ids []string, region string) ([]Record, int, error) {
	params := url.Values{}
	params.Set("part", "statistics,snippet")
	params.Set("id", strings.Join(ids, ","))

	body, err := y.get(ctx, "/videos", params)
	if err != nil {
		return nil, 0, err
	}

	var result ytVideoResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("decode videos: %w", err)
	}

	var records []Record
	dropped := 0
	now := time.Now().UTC()

	for _, video := range result.Items {
		if video.Snippet.Title == "" {
			dropped++
			continue
		}

		views := video.Statistics.ViewCount
		likes := video.Statistics.LikeCount
		comments := video.Statistics.CommentCount

		if views < y.minViews {
			continue
		}

		records = append(records, Record{
			Workflow: truncate(video.Snippet.Title, maxWorkflowLen),
			Source:   SourceYouTube,
			Region:   region,
			Metrics: Metrics{
				Views:              views,
				Likes:              likes,
				Comments:           comments,
				LikeToViewRatio:    scoring.Ratio(likes, views),
				CommentToViewRatio: scoring.Ratio(comments, views),
				EngagementScore:    scoring.Engagement(views, likes, comments, 0),
			},
			URL:         fmt.Sprintf("https://youtube.com/watch?v=%s", video.ID),
			CollectedAt: now,
		})
	}

	return records, dropped, nil
}

type ytSearchResult struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideoResult struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    int `json:"viewCount,string"`
			LikeCount    int `json:"likeCount,string"`
			CommentCount int `json:"commentCount,string"`
		} `json:"statistics"`
	} `json:"items"`
}
