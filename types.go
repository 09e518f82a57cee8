package instagram

import "time"

// Profile represents an Instagram profile with its public stats.
type Profile struct {
	Username    string
	FullName    string
	Biography   string
	Followers   int
	Following   int
	Posts       int
	Verified    bool
	Private     bool
	AvatarURL   string
	ExternalURL string
}

// Video represents a scraped Instagram video with its engagement metrics.
// LikesRate and CommentsRate are percentages of the view count, rounded to
// two decimals. Transcription is never empty: when the media pipeline could
// not produce a transcript it holds one of the sentinel values below.
type Video struct {
	URL           string
	Username      string
	Likes         int
	Comments      int
	Views         int
	LikesRate     float64
	CommentsRate  float64
	Transcription string
	PostedAt      time.Time // zero when the posted timestamp is unknown
}

// Transcription sentinels. Each names the pipeline stage that failed, so
// downstream consumers can treat the field uniformly as text.
const (
	TranscriptionNoVideoURL  = "NO_VIDEO_URL"
	TranscriptionDownloadErr = "DOWNLOAD_ERROR"
	TranscriptionNoAudio     = "NO_AUDIO"
	TranscriptionFailed      = "TRANSCRIPTION_ERROR"
)
