package models

import "time"

const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

// MPost is a scraped social/news post with its sentiment classification.
type MPost struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	Author         string    `json:"author"`
	SentimentClass string    `json:"sentiment_class"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

type MSentimentCounts struct {
	Positive int `json:"Positive"`
	Negative int `json:"Negative"`
	Neutral  int `json:"Neutral"`
}

// MTrendPoint is one hourly bucket of the sentiment trend.
type MTrendPoint struct {
	Time     string `json:"time"` // "HH:00"
	Positive int    `json:"Positive"`
	Negative int    `json:"Negative"`
	Neutral  int    `json:"Neutral"`
}

type MSocialStats struct {
	TotalPosts      int              `json:"totalPosts"`
	SentimentCounts MSentimentCounts `json:"sentimentCounts"`
	TopTrend        string           `json:"topTrend"`
	TrendData       []MTrendPoint    `json:"trendData"`
	RecentFeed      []MPost          `json:"recentFeed"`
}

// MFeedFilter selects a page of posts.
type MFeedFilter struct {
	Page      int
	Limit     int
	Sentiment string
	Source    string
}

type MPagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Limit      int `json:"limit"`
}

type MSocialFeed struct {
	Posts      []MPost     `json:"posts"`
	Pagination MPagination `json:"pagination"`
}
