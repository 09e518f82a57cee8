package instagram

import (
	"math"
	"sort"
)

// EngagementRate expresses a count (likes or comments) as a percentage of
// the view count, rounded to two decimals. Zero views yields 0.0.
func EngagementRate(count, views int) float64 {
	if views <= 0 {
		return 0.0
	}
	return round2(100 * float64(count) / float64(views))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// EngagementStats are aggregate statistics over a video collection. An
// empty collection reports zero for every field.
type EngagementStats struct {
	TotalVideos     int     `json:"total_videos"`
	AvgLikesRate    float64 `json:"average_likes_rate"`
	MaxLikesRate    float64 `json:"max_likes_rate"`
	MinLikesRate    float64 `json:"min_likes_rate"`
	AvgCommentsRate float64 `json:"average_comments_rate"`
	MaxCommentsRate float64 `json:"max_comments_rate"`
	MinCommentsRate float64 `json:"min_comments_rate"`
}

// Aggregate computes per-metric average and extrema over the collection.
func Aggregate(videos []Video) EngagementStats {
	stats := EngagementStats{TotalVideos: len(videos)}
	if len(videos) == 0 {
		return stats
	}

	stats.MinLikesRate = videos[0].LikesRate
	stats.MaxLikesRate = videos[0].LikesRate
	stats.MinCommentsRate = videos[0].CommentsRate
	stats.MaxCommentsRate = videos[0].CommentsRate

	var likesSum, commentsSum float64
	for _, v := range videos {
		likesSum += v.LikesRate
		commentsSum += v.CommentsRate
		stats.MinLikesRate = math.Min(stats.MinLikesRate, v.LikesRate)
		stats.MaxLikesRate = math.Max(stats.MaxLikesRate, v.LikesRate)
		stats.MinCommentsRate = math.Min(stats.MinCommentsRate, v.CommentsRate)
		stats.MaxCommentsRate = math.Max(stats.MaxCommentsRate, v.CommentsRate)
	}
	stats.AvgLikesRate = round2(likesSum / float64(len(videos)))
	stats.AvgCommentsRate = round2(commentsSum / float64(len(videos)))
	return stats
}

// TopPerformers ranks videos by combined engagement rate, descending, ties
// keeping their original order, truncated to k.
func TopPerformers(videos []Video, k int) []Video {
	ranked := make([]Video, len(videos))
	copy(ranked, videos)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LikesRate+ranked[i].CommentsRate >
			ranked[j].LikesRate+ranked[j].CommentsRate
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Outlier is a video whose engagement rate falls outside the multiplicative
// band around the dataset mean. IsHighPerformer marks rates above the high
// bound specifically, not merely outside the band.
type Outlier struct {
	Video           Video
	IsHighPerformer bool
}

// OutlierReport carries the detected outliers together with the averages
// and threshold they were judged against.
type OutlierReport struct {
	AvgLikesRate    float64
	AvgCommentsRate float64
	Threshold       float64
	Outliers        []Outlier
}

// DetectOutliers flags videos whose likes or comments rate falls outside
// avg*(1±threshold) for that metric. The threshold is a multiplicative
// fraction: 2.0 means ±200% of the mean. With threshold > 1 the low bound
// goes negative, so small positive rates are never flagged low.
func DetectOutliers(videos []Video, threshold float64) OutlierReport {
	var likesSum, commentsSum float64
	for _, v := range videos {
		likesSum += v.LikesRate
		commentsSum += v.CommentsRate
	}

	var avgLikes, avgComments float64
	if len(videos) > 0 {
		avgLikes = likesSum / float64(len(videos))
		avgComments = commentsSum / float64(len(videos))
	}

	likesHigh := avgLikes * (1 + threshold)
	likesLow := avgLikes * (1 - threshold)
	commentsHigh := avgComments * (1 + threshold)
	commentsLow := avgComments * (1 - threshold)

	report := OutlierReport{
		AvgLikesRate:    round2(avgLikes),
		AvgCommentsRate: round2(avgComments),
		Threshold:       threshold,
	}
	for _, v := range videos {
		outside := v.LikesRate > likesHigh || v.LikesRate < likesLow ||
			v.CommentsRate > commentsHigh || v.CommentsRate < commentsLow
		if !outside {
			continue
		}
		report.Outliers = append(report.Outliers, Outlier{
			Video:           v,
			IsHighPerformer: v.LikesRate > likesHigh || v.CommentsRate > commentsHigh,
		})
	}
	return report
}

// ProfileStats summarizes one profile together with its acquired videos.
type ProfileStats struct {
	Profile         Profile
	TotalVideos     int
	TotalViews      int
	TotalLikes      int
	TotalComments   int
	AvgLikesRate    float64
	AvgCommentsRate float64
	RecentVideos    []Video
}

// BuildProfileStats aggregates a user's videos under their profile record.
// RecentVideos holds at most the 10 most recently posted.
func BuildProfileStats(profile Profile, videos []Video) ProfileStats {
	stats := ProfileStats{
		Profile:     profile,
		TotalVideos: len(videos),
	}

	var likesSum, commentsSum float64
	for _, v := range videos {
		stats.TotalViews += v.Views
		stats.TotalLikes += v.Likes
		stats.TotalComments += v.Comments
		likesSum += v.LikesRate
		commentsSum += v.CommentsRate
	}
	if len(videos) > 0 {
		stats.AvgLikesRate = round2(likesSum / float64(len(videos)))
		stats.AvgCommentsRate = round2(commentsSum / float64(len(videos)))
	}

	recent := make([]Video, len(videos))
	copy(recent, videos)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PostedAt.After(recent[j].PostedAt)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentVideos = recent
	return stats
}
