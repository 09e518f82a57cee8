package instagram

import "time"

// Apify acquisition backend responses (match the API JSON exactly).

type apifyRunResponse struct {
	Data apifyRunData `json:"data"`
}

type apifyRunData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Run status values the poll loop cares about; anything else means
// in-progress.
const (
	runStatusSucceeded = "SUCCEEDED"
	runStatusFailed    = "FAILED"
)

// apifyItem is one dataset item from a finished run. The scraper actors are
// not consistent about field names, so counts and the media URL each have
// fallbacks.
type apifyItem struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"errorDescription"`

	OwnerUsername string `json:"ownerUsername"`
	Owner         struct {
		Username string `json:"username"`
	} `json:"owner"`
	Username string `json:"username"`

	LikesCount     int `json:"likesCount"`
	CommentsCount  int `json:"commentsCount"`
	VideoViewCount int `json:"videoViewCount"`
	ViewsCount     int `json:"viewsCount"`

	Timestamp string `json:"timestamp"`
	VideoURL  string `json:"videoUrl"`
	Video     string `json:"video"`
}

func (it apifyItem) username() string {
	switch {
	case it.OwnerUsername != "":
		return it.OwnerUsername
	case it.Owner.Username != "":
		return it.Owner.Username
	default:
		return it.Username
	}
}

func (it apifyItem) views() int {
	if it.VideoViewCount > 0 {
		return it.VideoViewCount
	}
	return it.ViewsCount
}

func (it apifyItem) mediaURL() string {
	if it.VideoURL != "" {
		return it.VideoURL
	}
	return it.Video
}

// postedAt parses the item timestamp. Parse failure degrades to the zero
// time ("unknown") rather than aborting the record.
func (it apifyItem) postedAt() time.Time {
	if it.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, it.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
