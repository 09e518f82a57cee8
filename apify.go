package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// VideoScraper acquires Instagram video records through the Apify actor
// API: submit a run for the target URL, poll it to completion, fetch the
// single dataset item, then hand the media URL to the transcription
// pipeline. A failed URL is fatal for that URL only; batches proceed.
type VideoScraper struct {
	client       *resty.Client
	token        string
	actorID      string
	pollInterval time.Duration
	pollAttempts int

	media  *mediaPipeline
	logger *slog.Logger
}

// NewVideoScraper creates a scraper wired to the configured Apify actor and
// transcription endpoint.
func NewVideoScraper(cfg *Config) *VideoScraper {
	client := resty.New().
		SetBaseURL(cfg.ApifyBaseURL).
		SetAuthToken(cfg.ApifyToken).
		SetTimeout(60 * time.Second)

	return &VideoScraper{
		client:       client,
		token:        cfg.ApifyToken,
		actorID:      cfg.ApifyActorID,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		media:        newMediaPipeline(cfg),
		logger:       slog.Default(),
	}
}

// WithLogger sets the structured logger.
func (s *VideoScraper) WithLogger(logger *slog.Logger) *VideoScraper {
	s.logger = logger
	s.media.logger = logger
	return s
}

// SetProxy routes the media download client through an HTTP/HTTPS or SOCKS5
// proxy.
func (s *VideoScraper) SetProxy(proxyAddr string) error {
	return s.media.setProxy(proxyAddr)
}

// ScrapeVideo acquires the engagement record for one Instagram video URL.
// Acquisition-backend failures are fatal for the call; media pipeline
// failures are not, the record is still returned with a sentinel
// transcription. Temporary media files are always removed before return.
func (s *VideoScraper) ScrapeVideo(ctx context.Context, videoURL string) (Video, error) {
	if s.token == "" {
		return Video{}, fmt.Errorf("scrape video: apify token: %w", ErrNoCredentials)
	}
	if videoURL == "" {
		return Video{}, fmt.Errorf("scrape video: url is required")
	}

	runID, err := s.startRun(ctx, videoURL)
	if err != nil {
		return Video{}, fmt.Errorf("scrape video %q: %w", videoURL, err)
	}
	s.logger.Info("acquisition run started", "url", videoURL, "run_id", runID)

	if err := s.waitForRun(ctx, runID); err != nil {
		return Video{}, fmt.Errorf("scrape video %q: %w", videoURL, err)
	}

	item, err := s.fetchItem(ctx, runID)
	if err != nil {
		return Video{}, fmt.Errorf("scrape video %q: %w", videoURL, err)
	}

	likes, comments, views := item.LikesCount, item.CommentsCount, item.views()
	video := Video{
		URL:          videoURL,
		Username:     item.username(),
		Likes:        likes,
		Comments:     comments,
		Views:        views,
		LikesRate:    EngagementRate(likes, views),
		CommentsRate: EngagementRate(comments, views),
		PostedAt:     item.postedAt(),
	}

	video.Transcription = s.media.transcribe(ctx, item.mediaURL())

	s.logger.Info("video acquired", "url", videoURL, "username", video.Username,
		"views", views, "likes_rate", video.LikesRate)
	return video, nil
}

func (s *VideoScraper) startRun(ctx context.Context, videoURL string) (string, error) {
	body := map[string]any{
		"directUrls":   []string{videoURL},
		"resultsType":  "posts",
		"resultsLimit": 1,
	}

	var result apifyRunResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v2/acts/" + s.actorID + "/runs")
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("start run: %w: HTTP %d", ErrRunFailed, resp.StatusCode())
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("start run: %w: missing run id", ErrInvalidResponse)
	}
	return result.Data.ID, nil
}

// waitForRun polls run status at a fixed interval up to the attempt budget.
// Exhausting the budget is a timeout, treated the same as an explicit
// failure and not retried within the call.
func (s *VideoScraper) waitForRun(ctx context.Context, runID string) error {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}

		var result apifyRunResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetResult(&result).
			Get("/v2/actor-runs/" + runID)
		if err != nil {
			return fmt.Errorf("poll run %s: %w", runID, err)
		}
		if resp.IsError() {
			return fmt.Errorf("poll run %s: %w: HTTP %d", runID, ErrRunFailed, resp.StatusCode())
		}

		switch result.Data.Status {
		case runStatusSucceeded:
			return nil
		case runStatusFailed:
			return fmt.Errorf("run %s: %w", runID, ErrRunFailed)
		}
		s.logger.Debug("run in progress", "run_id", runID, "status", result.Data.Status, "attempt", attempt+1)
	}
	return fmt.Errorf("run %s: %w after %d attempts", runID, ErrRunTimeout, s.pollAttempts)
}

func (s *VideoScraper) fetchItem(ctx context.Context, runID string) (apifyItem, error) {
	var items []apifyItem
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&items).
		Get("/v2/actor-runs/" + runID + "/dataset/items")
	if err != nil {
		return apifyItem{}, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.IsError() {
		return apifyItem{}, fmt.Errorf("fetch dataset: %w: HTTP %d", ErrRunFailed, resp.StatusCode())
	}
	if len(items) == 0 {
		return apifyItem{}, ErrEmptyDataset
	}

	item := items[0]
	if item.Error != "" {
		return apifyItem{}, fmt.Errorf("%w: %s: %s", ErrRunFailed, item.Error, item.ErrorDescription)
	}
	return item, nil
}
