// SPDX-License-Identifier: MIT

package catalog

import (
	"regexp"
	"strings"
)

// nonMusicKeywords rejects a candidate whose title/description/uploader
// (lowercased, concatenated) contains any of these words. The list is part
// of the contract and is embedded verbatim.
var nonMusicKeywords = []string{
	"news", "gaming", "vlog", "unboxing", "review", "podcast", "livestream",
	"tutorial", "sports", "documentary", "trailer", "asmr", "reaction",
	"gameplay", "walkthrough", "highlights", "interview", "breaking",
	"forecast", "debate", "commentary", "lecture", "conference", "webinar",
}

// musicIndicators, when present, rescue an otherwise-ambiguous candidate
// (e.g. an uploader with more than 5 words, or unknown duration).
var musicIndicators = []string{
	"song", "music", "track", "album", "remix", "cover", "official audio",
	"lyrics", "feat", "ft.", "featuring", "mv",
}

// rejectPatterns are regular expressions that, if matched against the
// title, reject the candidate outright.
var rejectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\s*(hours?|minutes?|days?)\s*(ago|old)`),
	regexp.MustCompile(`live\s+(now|stream|chat)`),
	regexp.MustCompile(`episode\s+\d+`),
	regexp.MustCompile(`part\s+\d+`),
	regexp.MustCompile(`season\s+\d+`),
}

const (
	maxTitleLength       = 80
	maxDescriptionLength = 500
	minDurationSeconds   = 45
	maxDurationSeconds   = 600
	maxUploaderWords     = 5
)

// Candidate is the input to IsMusic: the raw, unclassified fields of a
// trending or search result.
type Candidate struct {
	Title       string
	Description string
	Uploader    string
	DurationS   int // 0 means unknown
	HasDuration bool
}

// IsMusic applies the deterministic music classifier heuristic. It never
// returns an error: rejection is a silent drop, not a failure mode.
func IsMusic(c Candidate) bool {
	blob := strings.ToLower(c.Title + " " + c.Description + " " + c.Uploader)

	for _, kw := range nonMusicKeywords {
		if strings.Contains(blob, kw) {
			return false
		}
	}

	if len(c.Title) > maxTitleLength || len(c.Description) > maxDescriptionLength {
		return false
	}

	uploaderWords := strings.Fields(c.Uploader)
	if len(uploaderWords) > maxUploaderWords && !containsMusicIndicator(blob) {
		return false
	}

	if c.HasDuration {
		if c.DurationS < minDurationSeconds || c.DurationS > maxDurationSeconds {
			return false
		}
	} else if !containsMusicIndicator(blob) {
		return false
	}

	lowerTitle := strings.ToLower(c.Title)
	for _, re := range rejectPatterns {
		if re.MatchString(lowerTitle) {
			return false
		}
	}

	return true
}

func containsMusicIndicator(blob string) bool {
	for _, ind := range musicIndicators {
		if strings.Contains(blob, ind) {
			return true
		}
	}
	return false
}
