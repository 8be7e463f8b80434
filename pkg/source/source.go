package source

import (
	"context"
	"time"
)

// SourceType identifies which platform a record came from.
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceForum   SourceType = "forum"
	SourceGitHub  SourceType = "github"
	SourceTrends  SourceType = "trends"
)

// maxWorkflowLen bounds workflow titles so downstream display stays stable.
const maxWorkflowLen = 100

// Metrics is the fixed bag of popularity counters attached to a record.
// Counters default to zero; EngagementScore is always derived from the raw
// counters, never supplied by an upstream.
type Metrics struct {
	Views              int     `json:"views"`
	Likes              int     `json:"likes"`
	Comments           int     `json:"comments"`
	Replies            int     `json:"replies"`
	Contributors       int     `json:"contributors"`
	LikeToViewRatio    float64 `json:"like_to_view_ratio"`
	CommentToViewRatio float64 `json:"comment_to_view_ratio"`
	SearchVolume       int     `json:"search_volume"`
	TrendChange        float64 `json:"trend_change"`
	EngagementScore    float64 `json:"engagement_score"`
}

// Record is one normalized popularity observation for one workflow on one
// platform, in one region. Records are immutable once created; a fresh record
// replaces a stale one on the next collection cycle.
type Record struct {
	Workflow    string     `json:"workflow"`
	Source      SourceType `json:"source"`
	Region      string     `json:"region"`
	Metrics     Metrics    `json:"metrics"`
	URL         string     `json:"url,omitempty"`
	CollectedAt time.Time  `json:"collected_at"`
}

// Result is what an adapter returns: the records it managed to collect plus a
// count of items it had to drop because of upstream errors or malformed
// payloads. Adapters never fail outright; a fully broken upstream yields an
// empty Result.
type Result struct {
	Records []Record
	Dropped int
}

// Source is the interface every adapter implements.
//
// Regional reports whether the upstream's data varies by region. Non-regional
// sources are fetched once per cycle and their records tagged with the primary
// region; this is a documented modeling simplification, not geographic truth.
type Source interface {
	Name() SourceType
	Regional() bool
	Fetch(ctx context.Context, region string) Result
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceYouTube, SourceForum, SourceGitHub, SourceTrends}
}

// truncate bounds a workflow title to max characters.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// sleep waits for d or until ctx is cancelled, whichever comes first. Adapters
// use it for self-imposed delays between upstream calls.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
