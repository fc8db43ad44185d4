// SPDX-License-Identifier: MIT

package catalog

type invidiousVideo struct {
	Type            string                 `json:"type"`
	VideoID         string                 `json:"videoId"`
	Title           string                 `json:"title"`
	Author          string                 `json:"author"`
	Description     string                 `json:"description"`
	LengthSeconds   int                    `json:"lengthSeconds"`
	VideoThumbnails []invidiousThumbnail   `json:"videoThumbnails"`
}

type invidiousThumbnail struct {
	URL string `json:"url"`
}

func (v invidiousVideo) thumbnail() string {
	if len(v.VideoThumbnails) == 0 {
		return ""
	}
	return v.VideoThumbnails[0].URL
}

func invidiousVideosToTracks(videos []invidiousVideo, instance string) []Track {
	out := make([]Track, 0, len(videos))
	for _, v := range videos {
		if v.Type != "" && v.Type != "video" {
			continue
		}
		if v.VideoID == "" {
			continue
		}
		out = append(out, Track{
			ID:             v.VideoID,
			Title:          v.Title,
			Artist:         v.Author,
			Thumbnail:      v.thumbnail(),
			DurationS:      v.LengthSeconds,
			Source:         "youtube",
			StreamSource:   "invidious",
			StreamInstance: instance,
		})
	}
	return out
}
