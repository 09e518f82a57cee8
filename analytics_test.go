package instagram

import (
	"testing"
	"time"
)

func TestEngagementRate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		count int
		views int
		want  float64
	}{
		{"zero views", 50, 0, 0.0},
		{"zero everything", 0, 0, 0.0},
		{"five percent", 50, 1000, 5.0},
		{"rounded to two decimals", 1, 3, 33.33},
		{"over one hundred percent", 200, 100, 200.0},
		{"tiny rate", 1, 100000, 0.0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EngagementRate(tt.count, tt.views); got != tt.want {
				t.Errorf("EngagementRate(%d, %d) = %v, want %v", tt.count, tt.views, got, tt.want)
			}
		})
	}
}

func TestEngagementRate_MonotonicInCount(t *testing.T) {
	t.Parallel()
	prev := -1.0
	for count := 0; count <= 1000; count += 50 {
		rate := EngagementRate(count, 1000)
		if rate < prev {
			t.Fatalf("rate decreased at count=%d: %v < %v", count, rate, prev)
		}
		prev = rate
	}
}

func ratedVideos(likesRates ...float64) []Video {
	videos := make([]Video, 0, len(likesRates))
	for i, r := range likesRates {
		videos = append(videos, Video{
			URL:       "https://www.instagram.com/reel/" + string(rune('a'+i)) + "/",
			LikesRate: r,
		})
	}
	return videos
}

func TestAggregate(t *testing.T) {
	t.Parallel()
	videos := []Video{
		{LikesRate: 2.0, CommentsRate: 0.5},
		{LikesRate: 4.0, CommentsRate: 1.5},
		{LikesRate: 6.0, CommentsRate: 1.0},
	}

	stats := Aggregate(videos)
	if stats.TotalVideos != 3 {
		t.Errorf("total = %d, want 3", stats.TotalVideos)
	}
	if stats.AvgLikesRate != 4.0 || stats.MinLikesRate != 2.0 || stats.MaxLikesRate != 6.0 {
		t.Errorf("likes stats = %v/%v/%v", stats.AvgLikesRate, stats.MinLikesRate, stats.MaxLikesRate)
	}
	if stats.AvgCommentsRate != 1.0 || stats.MinCommentsRate != 0.5 || stats.MaxCommentsRate != 1.5 {
		t.Errorf("comments stats = %v/%v/%v", stats.AvgCommentsRate, stats.MinCommentsRate, stats.MaxCommentsRate)
	}
}

// An empty collection reports zero for every statistic rather than failing.
func TestAggregate_Empty(t *testing.T) {
	t.Parallel()
	stats := Aggregate(nil)
	if stats != (EngagementStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestTopPerformers(t *testing.T) {
	t.Parallel()
	videos := []Video{
		{URL: "a", LikesRate: 1.0, CommentsRate: 0.5},
		{URL: "b", LikesRate: 5.0, CommentsRate: 2.0},
		{URL: "c", LikesRate: 3.0, CommentsRate: 0.0},
	}

	top := TopPerformers(videos, 2)
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].URL != "b" || top[1].URL != "c" {
		t.Errorf("order = %s, %s, want b, c", top[0].URL, top[1].URL)
	}
}

// Records with equal combined rate keep their original relative order.
func TestTopPerformers_StableTies(t *testing.T) {
	t.Parallel()
	videos := []Video{
		{URL: "first", LikesRate: 2.0, CommentsRate: 1.0},
		{URL: "second", LikesRate: 1.0, CommentsRate: 2.0},
		{URL: "third", LikesRate: 3.0, CommentsRate: 0.0},
	}

	top := TopPerformers(videos, 3)
	if top[0].URL != "first" || top[1].URL != "second" || top[2].URL != "third" {
		t.Errorf("tie order broken: %s, %s, %s", top[0].URL, top[1].URL, top[2].URL)
	}
}

func TestTopPerformers_TruncationBounds(t *testing.T) {
	t.Parallel()
	videos := ratedVideos(1, 2, 3)
	if got := TopPerformers(videos, 10); len(got) != 3 {
		t.Errorf("k beyond len: got %d, want 3", len(got))
	}
	if got := TopPerformers(videos, 0); len(got) != 0 {
		t.Errorf("k=0: got %d, want 0", len(got))
	}
	if got := TopPerformers(nil, 5); len(got) != 0 {
		t.Errorf("empty input: got %d", len(got))
	}
}

func TestDetectOutliers(t *testing.T) {
	t.Parallel()
	// Average 3.25, threshold 2.0 → bounds (9.75, -6.5): only the rate-10
	// record is outside, and only on the high side.
	videos := ratedVideos(1, 1, 1, 10)

	report := DetectOutliers(videos, 2.0)
	if report.AvgLikesRate != 3.25 {
		t.Errorf("avg = %v, want 3.25", report.AvgLikesRate)
	}
	if len(report.Outliers) != 1 {
		t.Fatalf("outliers = %d, want 1", len(report.Outliers))
	}
	if report.Outliers[0].Video.LikesRate != 10 {
		t.Errorf("flagged rate = %v, want 10", report.Outliers[0].Video.LikesRate)
	}
	if !report.Outliers[0].IsHighPerformer {
		t.Error("expected the high-side outlier to be a high performer")
	}
}

// With threshold > 1 the low bound is negative, so small positive rates are
// never flagged low. The formula is preserved as documented.
func TestDetectOutliers_NegativeLowBound(t *testing.T) {
	t.Parallel()
	videos := ratedVideos(0.01, 5, 5, 5)

	report := DetectOutliers(videos, 2.0)
	for _, o := range report.Outliers {
		if o.Video.LikesRate == 0.01 {
			t.Error("rate 0.01 flagged low despite negative low bound")
		}
	}
}

func TestDetectOutliers_CommentsSide(t *testing.T) {
	t.Parallel()
	videos := []Video{
		{URL: "a", CommentsRate: 0.1},
		{URL: "b", CommentsRate: 0.1},
		{URL: "c", CommentsRate: 2.0},
	}

	report := DetectOutliers(videos, 1.0)
	if len(report.Outliers) != 1 || report.Outliers[0].Video.URL != "c" {
		t.Fatalf("expected only c flagged, got %+v", report.Outliers)
	}
	if !report.Outliers[0].IsHighPerformer {
		t.Error("expected comments-side high performer")
	}
}

func TestDetectOutliers_Empty(t *testing.T) {
	t.Parallel()
	report := DetectOutliers(nil, 2.0)
	if len(report.Outliers) != 0 || report.AvgLikesRate != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestBuildProfileStats(t *testing.T) {
	t.Parallel()
	profile := Profile{Username: "cristiano", Followers: 100}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var videos []Video
	for i := 0; i < 12; i++ {
		videos = append(videos, Video{
			URL:          "v" + string(rune('a'+i)),
			Views:        100,
			Likes:        10,
			Comments:     2,
			LikesRate:    10.0,
			CommentsRate: 2.0,
			PostedAt:     base.Add(time.Duration(i) * time.Hour),
		})
	}

	stats := BuildProfileStats(profile, videos)
	if stats.TotalVideos != 12 || stats.TotalViews != 1200 || stats.TotalLikes != 120 || stats.TotalComments != 24 {
		t.Errorf("totals = %d/%d/%d/%d", stats.TotalVideos, stats.TotalViews, stats.TotalLikes, stats.TotalComments)
	}
	if stats.AvgLikesRate != 10.0 || stats.AvgCommentsRate != 2.0 {
		t.Errorf("avg rates = %v/%v", stats.AvgLikesRate, stats.AvgCommentsRate)
	}
	if len(stats.RecentVideos) != 10 {
		t.Fatalf("recent = %d, want 10", len(stats.RecentVideos))
	}
	if !stats.RecentVideos[0].PostedAt.After(stats.RecentVideos[9].PostedAt) {
		t.Error("recent videos not ordered newest first")
	}
}

func TestBuildProfileStats_NoVideos(t *testing.T) {
	t.Parallel()
	stats := BuildProfileStats(Profile{Username: "empty"}, nil)
	if stats.TotalVideos != 0 || stats.AvgLikesRate != 0 || len(stats.RecentVideos) != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}
