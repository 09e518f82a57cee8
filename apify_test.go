package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Mock Apify backend
// ---------------------------------------------------------------------------

// mockApify emulates the actor-run API: run submission, status polling and
// dataset retrieval.
type mockApify struct {
	statuses []string // statuses returned by successive polls; last repeats
	items    string   // dataset items JSON
	polls    atomic.Int32
}

func (m *mockApify) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/acts/test~actor/runs":
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
			}
			var body struct {
				DirectURLs   []string `json:"directUrls"`
				ResultsType  string   `json:"resultsType"`
				ResultsLimit int      `json:"resultsLimit"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode run request: %v", err)
			}
			if body.ResultsType != "posts" || body.ResultsLimit != 1 || len(body.DirectURLs) != 1 {
				t.Errorf("unexpected run request: %+v", body)
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data":{"id":"run1","status":"READY"}}`)

		case r.Method == http.MethodGet && r.URL.Path == "/v2/actor-runs/run1":
			n := int(m.polls.Add(1)) - 1
			if n >= len(m.statuses) {
				n = len(m.statuses) - 1
			}
			fmt.Fprintf(w, `{"data":{"id":"run1","status":"%s"}}`, m.statuses[n])

		case r.Method == http.MethodGet && r.URL.Path == "/v2/actor-runs/run1/dataset/items":
			fmt.Fprint(w, m.items)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestVideoScraper(t *testing.T, mock *mockApify) *VideoScraper {
	t.Helper()
	srv := httptest.NewServer(mock.handler(t))
	t.Cleanup(srv.Close)

	cfg := &Config{
		ApifyToken:       "test-token",
		ApifyActorID:     "test~actor",
		ApifyBaseURL:     srv.URL,
		PollInterval:     time.Millisecond,
		PollAttempts:     5,
		FFmpegBin:        "ffmpeg",
		TranscriberModel: "whisper-1",
	}
	return NewVideoScraper(cfg)
}

const successItem = `[{
	"ownerUsername": "cristiano",
	"likesCount": 50,
	"commentsCount": 10,
	"videoViewCount": 1000,
	"timestamp": "2025-06-01T12:00:00Z"
}]`

// ---------------------------------------------------------------------------
// ScrapeVideo
// ---------------------------------------------------------------------------

func TestScrapeVideo_Success(t *testing.T) {
	t.Parallel()
	vs := newTestVideoScraper(t, &mockApify{
		statuses: []string{"RUNNING", "SUCCEEDED"},
		items:    successItem,
	})

	v, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if v.Username != "cristiano" {
		t.Errorf("username = %q", v.Username)
	}
	if v.Likes != 50 || v.Comments != 10 || v.Views != 1000 {
		t.Errorf("counts = %d/%d/%d", v.Likes, v.Comments, v.Views)
	}
	if v.LikesRate != 5.0 || v.CommentsRate != 1.0 {
		t.Errorf("rates = %v/%v, want 5.0/1.0", v.LikesRate, v.CommentsRate)
	}
	if v.PostedAt.IsZero() || v.PostedAt.Hour() != 12 {
		t.Errorf("posted at = %v", v.PostedAt)
	}
	// No media URL in the item: the record is still returned, degraded.
	if v.Transcription != TranscriptionNoVideoURL {
		t.Errorf("transcription = %q, want %q", v.Transcription, TranscriptionNoVideoURL)
	}
}

func TestScrapeVideo_MediaLeg(t *testing.T) {
	t.Parallel()
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4 bytes"))
	}))
	t.Cleanup(media.Close)

	vs := newTestVideoScraper(t, &mockApify{
		statuses: []string{"SUCCEEDED"},
		items: fmt.Sprintf(`[{"ownerUsername":"u","likesCount":1,"videoViewCount":10,"videoUrl":"%s/v.mp4"}]`,
			media.URL),
	})
	stub := &stubTranscriber{text: "the reel transcript"}
	vs.media.transcriber = stub
	vs.media.runFFmpeg = func(_ context.Context, _ string, args ...string) error {
		return writeFileHelper(args[len(args)-1])
	}

	v, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if v.Transcription != "the reel transcript" {
		t.Errorf("transcription = %q", v.Transcription)
	}
}

func TestScrapeVideo_RunFailed(t *testing.T) {
	t.Parallel()
	vs := newTestVideoScraper(t, &mockApify{statuses: []string{"FAILED"}})

	_, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if !errors.Is(err, ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
}

func TestScrapeVideo_Timeout(t *testing.T) {
	t.Parallel()
	mock := &mockApify{statuses: []string{"RUNNING"}}
	vs := newTestVideoScraper(t, mock)

	_, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if !errors.Is(err, ErrRunTimeout) {
		t.Fatalf("expected ErrRunTimeout, got %v", err)
	}
	if got := int(mock.polls.Load()); got != 5 {
		t.Errorf("polls = %d, want the full attempt budget", got)
	}
}

func TestScrapeVideo_EmptyDataset(t *testing.T) {
	t.Parallel()
	vs := newTestVideoScraper(t, &mockApify{statuses: []string{"SUCCEEDED"}, items: `[]`})

	_, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestScrapeVideo_ErrorItem(t *testing.T) {
	t.Parallel()
	vs := newTestVideoScraper(t, &mockApify{
		statuses: []string{"SUCCEEDED"},
		items:    `[{"error":"restricted_page","errorDescription":"login required"}]`,
	})

	_, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if !errors.Is(err, ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
}

func TestScrapeVideo_MissingToken(t *testing.T) {
	t.Parallel()
	vs := NewVideoScraper(&Config{ApifyActorID: "a", ApifyBaseURL: "http://localhost:1"})
	_, err := vs.ScrapeVideo(context.Background(), "https://www.instagram.com/reel/x/")
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestScrapeVideo_EmptyURL(t *testing.T) {
	t.Parallel()
	vs := NewVideoScraper(&Config{ApifyToken: "tok"})
	if _, err := vs.ScrapeVideo(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

// ---------------------------------------------------------------------------
// Item field fallbacks
// ---------------------------------------------------------------------------

func TestApifyItem_UsernameFallbacks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		json string
		want string
	}{
		{"ownerUsername", `{"ownerUsername":"a","owner":{"username":"b"},"username":"c"}`, "a"},
		{"owner.username", `{"owner":{"username":"b"},"username":"c"}`, "b"},
		{"bare username", `{"username":"c"}`, "c"},
		{"none", `{}`, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var item apifyItem
			if err := json.Unmarshal([]byte(tt.json), &item); err != nil {
				t.Fatal(err)
			}
			if got := item.username(); got != tt.want {
				t.Errorf("username() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApifyItem_ViewsAndMediaFallbacks(t *testing.T) {
	t.Parallel()
	var item apifyItem
	if err := json.Unmarshal([]byte(`{"viewsCount":77,"video":"http://v/2.mp4"}`), &item); err != nil {
		t.Fatal(err)
	}
	if item.views() != 77 {
		t.Errorf("views() = %d, want viewsCount fallback", item.views())
	}
	if item.mediaURL() != "http://v/2.mp4" {
		t.Errorf("mediaURL() = %q, want video fallback", item.mediaURL())
	}

	if err := json.Unmarshal([]byte(`{"videoViewCount":5,"viewsCount":77,"videoUrl":"http://v/1.mp4"}`), &item); err != nil {
		t.Fatal(err)
	}
	if item.views() != 5 || item.mediaURL() != "http://v/1.mp4" {
		t.Errorf("primary fields should win: views=%d media=%q", item.views(), item.mediaURL())
	}
}

// Timestamp parse failure degrades to the zero time instead of failing.
func TestApifyItem_PostedAt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		ts       string
		wantZero bool
	}{
		{"valid RFC3339", "2025-06-01T12:00:00Z", false},
		{"with offset", "2025-06-01T12:00:00+02:00", false},
		{"garbage", "last tuesday", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := apifyItem{Timestamp: tt.ts}
			if got := item.postedAt(); got.IsZero() != tt.wantZero {
				t.Errorf("postedAt(%q).IsZero() = %v, want %v", tt.ts, got.IsZero(), tt.wantZero)
			}
		})
	}
}

func writeFileHelper(path string) error {
	return os.WriteFile(path, []byte("RIFFdata"), 0o600)
}
