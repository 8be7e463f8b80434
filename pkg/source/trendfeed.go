package source

import (
	"context"
	"time"

	"github.com/flowrank/flowrank/pkg/scoring"
)

// trendEntry is one keyword/volume/trend-change triple in the static dataset.
type trendEntry struct {
	Keyword string
	Volume  int
	Change  float64
}

// trendDataset is the fixed reference dataset the trend feed serves. It is a
// stand-in for a live trends integration: static data, scaled per region.
var trendDataset = []trendEntry{
	{"n8n Slack integration", 3600, 42.5},
	{"n8n Gmail automation", 2800, 35.2},
	{"n8n Google Sheets sync", 2400, 28.7},
	{"n8n Webhook automation", 2100, 15.3},
	{"n8n Discord bot", 1900, 51.2},
	{"n8n Notion integration", 1750, 44.8},
	{"n8n Airtable workflow", 1600, 22.1},
	{"n8n API automation", 1500, 18.9},
	{"n8n ChatGPT integration", 4200, 89.5},
	{"n8n OpenAI workflow", 3100, 76.3},
	{"n8n WhatsApp automation", 1400, 31.4},
	{"n8n Twitter bot", 1200, 12.8},
	{"n8n Instagram automation", 1350, 25.6},
	{"n8n MongoDB integration", 980, 19.7},
	{"n8n PostgreSQL workflow", 890, 14.2},
}

// TrendFeed serves the static search-trend dataset, with volumes scaled by a
// per-region multiplier to approximate regional variance. It is the only
// adapter without a network call.
type TrendFeed struct {
	multipliers map[string]float64
}

// NewTrendFeed creates a trend feed adapter. Regions absent from multipliers
// default to 1.0.
func NewTrendFeed(multipliers map[string]float64) *TrendFeed {
	return &TrendFeed{multipliers: multipliers}
}

func (t *TrendFeed) Name() SourceType { return SourceTrends }
func (t *TrendFeed) Regional() bool   { return true }

func (t *TrendFeed) Fetch(ctx context.Context, region string) Result {
	multiplier, ok := t.multipliers[region]
	if !ok {
		multiplier = 1.0
	}

	var res Result
	now := time.Now().UTC()

	for _, entry := range trendDataset {
		volume := int(float64(entry.Volume) * multiplier)

		res.Records = append(res.Records, Record{
			Workflow: entry.Keyword,
			Source:   SourceTrends,
			Region:   region,
			Metrics: Metrics{
				SearchVolume:    volume,
				TrendChange:     entry.Change,
				EngagementScore: scoring.TrendEngagement(volume, entry.Change),
			},
			CollectedAt: now,
		})
	}

	return res
}
