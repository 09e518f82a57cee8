package instagram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageSnapshot holds the representations of a loaded profile page that the
// automation layer captures in one shot: raw source, rendered body text and
// the final location. Extraction strategies are pure functions over a
// snapshot, so they can be exercised without a browser.
type PageSnapshot struct {
	HTML string
	Text string
	URL  string
}

// extractStrategy is one self-contained heuristic for deriving a Profile
// from a loaded page. Instagram serves different page representations
// depending on login state, locale and A/B cohort, so a single fixed parser
// is too brittle: strategies are tried in order of decreasing structural
// reliability and each reports ok=false when it cannot produce a valid
// record.
type extractStrategy interface {
	name() string
	tryExtract(snap PageSnapshot) (Profile, bool)
}

func defaultStrategies() []extractStrategy {
	return []extractStrategy{
		metaTagStrategy{},
		renderedTextStrategy{},
		embeddedJSONStrategy{},
	}
}

// extractProfile runs the strategy chain and returns the first structurally
// valid record. When every strategy fails the page is considered
// unextractable, which is a distinct condition from authentication failure.
func extractProfile(snap PageSnapshot, strategies []extractStrategy) (Profile, string, error) {
	for _, st := range strategies {
		if profile, ok := st.tryExtract(snap); ok {
			return profile, st.name(), nil
		}
	}
	return Profile{}, "", ErrNoProfileData
}

// Social-preview meta tag patterns. The description labels are
// case-sensitive on purpose: og:description uses Instagram's canonical
// English capitalization, while rendered text does not.
var (
	ogTitleRe       = regexp.MustCompile(`^(.+?)\s*\(@([^)]+)\)`)
	metaFollowersRe = regexp.MustCompile(`(\d+(?:\.\d+)?[KMB]?)\s+Followers?`)
	metaFollowingRe = regexp.MustCompile(`(\d+(?:\.\d+)?[KMB]?)\s+Following`)
	metaPostsRe     = regexp.MustCompile(`(\d+(?:\.\d+)?[KMB]?)\s+Posts?`)
)

// metaTagStrategy reads the og:title / og:description / og:image
// social-preview tags. It is the most trusted strategy: the preview tags
// are served even to logged-out clients and their format has been stable
// for years.
type metaTagStrategy struct{}

func (metaTagStrategy) name() string { return "meta-tags" }

func (metaTagStrategy) tryExtract(snap PageSnapshot) (Profile, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return Profile{}, false
	}

	var profile Profile
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		property, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		if content == "" {
			return
		}

		switch property {
		case "og:title":
			// Format: "Full Name (@username) • Instagram photos and videos"
			if m := ogTitleRe.FindStringSubmatch(content); m != nil {
				profile.FullName = strings.TrimSpace(m[1])
				profile.Username = strings.TrimSpace(m[2])
			}
		case "og:description":
			// Format: "664M Followers, 623 Following, 3,932 Posts - ..."
			profile.Biography = content
			if m := metaFollowersRe.FindStringSubmatch(content); m != nil {
				profile.Followers = parseCompactNumber(m[1])
			}
			if m := metaFollowingRe.FindStringSubmatch(content); m != nil {
				profile.Following = parseCompactNumber(m[1])
			}
			if m := metaPostsRe.FindStringSubmatch(content); m != nil {
				profile.Posts = parseCompactNumber(m[1])
			}
		case "og:image":
			profile.AvatarURL = content
		}
	})

	if profile.Username == "" || profile.FullName == "" {
		return Profile{}, false
	}
	return profile, true
}

var (
	textFollowersRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KMB]?)\s+followers?`)
	textFollowingRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KMB]?)\s+following`)
	textPostsRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KMB]?)\s+posts?`)
)

// renderedTextStrategy scans the visible body text for stat counters and
// account flags. It cannot recover username, full name or biography, so its
// contract is deliberately weaker than the meta-tag strategy: given any
// rendered text at all it returns a partial record unconditionally, as a
// last resort. It fails only when the body could not be read.
type renderedTextStrategy struct{}

func (renderedTextStrategy) name() string { return "rendered-text" }

func (renderedTextStrategy) tryExtract(snap PageSnapshot) (Profile, bool) {
	if snap.Text == "" {
		return Profile{}, false
	}

	var profile Profile
	if strings.Contains(snap.Text, "This account is private") {
		profile.Private = true
	}
	if strings.Contains(snap.Text, "Verified") {
		profile.Verified = true
	}

	if m := textFollowersRe.FindStringSubmatch(snap.Text); m != nil {
		profile.Followers = parseCompactNumber(m[1])
	}
	if m := textFollowingRe.FindStringSubmatch(snap.Text); m != nil {
		profile.Following = parseCompactNumber(m[1])
	}
	if m := textPostsRe.FindStringSubmatch(snap.Text); m != nil {
		profile.Posts = parseCompactNumber(m[1])
	}

	return profile, true
}

var (
	jsonUsernameRe  = regexp.MustCompile(`"username":\s*"([^"]+)"`)
	jsonFullNameRe  = regexp.MustCompile(`"full_name":\s*"([^"]+)"`)
	jsonFollowersRe = regexp.MustCompile(`"followers":\s*(\d+)`)
	jsonFollowingRe = regexp.MustCompile(`"following":\s*(\d+)`)
	jsonPostsRe     = regexp.MustCompile(`"posts":\s*(\d+)`)
)

// embeddedJSONStrategy scans the raw page source for profile fields embedded
// in script data. The counts here are plain integers, not compact "1.2K"
// strings. Valid whenever a username is present.
type embeddedJSONStrategy struct{}

func (embeddedJSONStrategy) name() string { return "embedded-json" }

func (embeddedJSONStrategy) tryExtract(snap PageSnapshot) (Profile, bool) {
	m := jsonUsernameRe.FindStringSubmatch(snap.HTML)
	if m == nil {
		return Profile{}, false
	}

	profile := Profile{Username: m[1]}
	if m := jsonFullNameRe.FindStringSubmatch(snap.HTML); m != nil {
		profile.FullName = m[1]
	}
	if m := jsonFollowersRe.FindStringSubmatch(snap.HTML); m != nil {
		profile.Followers, _ = strconv.Atoi(m[1])
	}
	if m := jsonFollowingRe.FindStringSubmatch(snap.HTML); m != nil {
		profile.Following, _ = strconv.Atoi(m[1])
	}
	if m := jsonPostsRe.FindStringSubmatch(snap.HTML); m != nil {
		profile.Posts, _ = strconv.Atoi(m[1])
	}
	return profile, true
}

// describeSnapshot is a small debug helper for log lines.
func describeSnapshot(snap PageSnapshot) string {
	return fmt.Sprintf("html=%d bytes text=%d bytes url=%s", len(snap.HTML), len(snap.Text), snap.URL)
}
