package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/flowrank/flowrank/pkg/scoring"
)

const defaultForumBaseURL = "https://community.n8n.io"

// Forum collects popular workflow discussions from the community forum's
// all-time top-topics listing. The forum is not region-partitioned, so the
// adapter is non-regional and fetched once per cycle.
type Forum struct {
	client    *http.Client
	baseURL   string
	maxTopics int
	minViews  int
}

// NewForum creates a new forum adapter. baseURL falls back to the public
// community forum when empty.
func NewForum(baseURL string) *Forum {
	if baseURL == "" {
		baseURL = defaultForumBaseURL
	}
	return &Forum{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   baseURL,
		maxTopics: 30,
		minViews:  50,
	}
}

func (f *Forum) Name() SourceType { return SourceForum }
func (f *Forum) Regional() bool   { return false }

func (f *Forum) Fetch(ctx context.Context, region string) Result {
	var res Result

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/top.json?period=all", nil)
	if err != nil {
		log.Printf("forum: create request: %v", err)
		res.Dropped++
		return res
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("forum: fetch top topics: %v", err)
		res.Dropped++
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("forum: top topics status %d", resp.StatusCode)
		res.Dropped++
		return res
	}

	var listing forumTopicList
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		log.Printf("forum: decode top topics: %v", err)
		res.Dropped++
		return res
	}

	topics := listing.TopicList.Topics
	if len(topics) > f.maxTopics {
		topics = topics[:f.maxTopics]
	}

	now := time.Now().UTC()
	for _, topic := range topics {
		if topic.Title == "" {
			res.Dropped++
			continue
		}
		if topic.Views < f.minViews {
			continue
		}

		// The opening post is not a reply.
		replies := topic.PostsCount - 1
		if replies < 0 {
			replies = 0
		}

		res.Records = append(res.Records, Record{
			Workflow: truncate(topic.Title, maxWorkflowLen),
			Source:   SourceForum,
			Region:   region,
			Metrics: Metrics{
				Views:           topic.Views,
				Likes:           topic.LikeCount,
				Replies:         replies,
				Contributors:    len(topic.Posters),
				EngagementScore: scoring.Engagement(topic.Views, topic.LikeCount, 0, replies),
			},
			URL:         fmt.Sprintf("%s/t/%s/%d", f.baseURL, topic.Slug, topic.ID),
			CollectedAt: now,
		})
	}

	return res
}

type forumTopicList struct {
	TopicList struct {
		Topics []forumTopic `json:"topics"`
	} `json:"topic_list"`
}

type forumTopic struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Views      int    `json:"views"`
	LikeCount  int    `json:"like_count"`
	PostsCount int    `json:"posts_count"`
	Posters    []struct {
		UserID int `json:"user_id"`
	} `json:"posters"`
}
