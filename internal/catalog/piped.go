// SPDX-License-Identifier: MIT

package catalog

import "strings"

type pipedSearchResponse struct {
	Items []pipedItem `json:"items"`
}

type pipedItem struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Thumbnail      string `json:"thumbnail"`
	UploaderName   string `json:"uploaderName"`
	Duration       int    `json:"duration"`
	Type           string `json:"type"`
}

func (i pipedItem) videoID() string {
	// piped encodes the id as "/watch?v=<id>" or "/playlist?list=..." for
	// non-video results, which are skipped by the caller.
	idx := strings.Index(i.URL, "v=")
	if idx == -1 {
		return ""
	}
	id := i.URL[idx+2:]
	if amp := strings.IndexByte(id, '&'); amp != -1 {
		id = id[:amp]
	}
	return id
}

func pipedItemsToTracks(items []pipedItem, instance string) []Track {
	out := make([]Track, 0, len(items))
	for _, it := range items {
		if it.Type != "" && it.Type != "stream" {
			continue
		}
		id := it.videoID()
		if id == "" {
			continue
		}
		out = append(out, Track{
			ID:             id,
			Title:          it.Title,
			Artist:         it.UploaderName,
			Thumbnail:      it.Thumbnail,
			DurationS:      it.Duration,
			Source:         "youtube",
			StreamSource:   "piped",
			StreamInstance: instance,
		})
	}
	return out
}
