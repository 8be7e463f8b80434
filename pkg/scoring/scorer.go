// Package scoring holds the two engagement formulas used across the system.
//
// Counter-based sources (videos, forum topics, repositories) score on weighted
// interactions per view; the trend feed has no view counters and scores on
// search volume amplified by its trend change.
package scoring

import "math"

// Engagement computes the weighted engagement score for counter-based sources.
// A comment or reply is worth 1.5x a like, as a stronger signal than a passive
// view. Views are floored at 1 so zero-view items score on raw interaction
// volume instead of dividing by zero.
func Engagement(views, likes, comments, replies int) float64 {
	if views < 1 {
		views = 1
	}
	score := float64(likes*2+comments*3+replies*3) / float64(views) * 1000
	return round(score, 2)
}

// TrendEngagement computes the engagement score for trend-feed entries:
// search volume amplified (or dampened) by the trend change percentage.
func TrendEngagement(volume int, change float64) float64 {
	return float64(volume) * (1 + change/100)
}

// Ratio divides two counters with the same zero-floor policy as Engagement,
// rounded to 4 decimal places. All ratio computations go through here; no
// adapter divides inline.
func Ratio(numerator, denominator int) float64 {
	if denominator < 1 {
		denominator = 1
	}
	return round(float64(numerator)/float64(denominator), 4)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
