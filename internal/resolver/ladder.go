// SPDX-License-Identifier: MIT

package resolver

import "sort"

// codecRank orders audio codecs for ladder sorting: opus first, then aac,
// then everything else.
func codecRank(codec string) int {
	switch codec {
	case "opus":
		return 0
	case "aac":
		return 1
	default:
		return 2
	}
}

func normalizeCodec(codec string) string {
	switch codec {
	case "opus", "aac":
		return codec
	default:
		return "other"
	}
}

// sortAudioLadder orders variants by codec preference (opus > aac > other),
// then by descending bitrate.
func sortAudioLadder(variants []AudioVariant) {
	sort.SliceStable(variants, func(i, j int) bool {
		ri, rj := codecRank(variants[i].Codec), codecRank(variants[j].Codec)
		if ri != rj {
			return ri < rj
		}
		return variants[i].BitrateBPS > variants[j].BitrateBPS
	})
}

// sortVideoLadder orders variants by descending height.
func sortVideoLadder(variants []VideoVariant) {
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Height > variants[j].Height
	})
}

// itagLabels is the static fallback table used when height is unknown (0).
var itagLabels = map[int]string{
	266: "2160p(4K)", 138: "2160p(4K)",
	264: "1440p(2K)", 271: "1440p(2K)",
	137: "1080p", 248: "1080p", 169: "1080p",
	136: "720p", 247: "720p", 168: "720p",
	135: "480p", 244: "480p", 167: "480p",
	134: "360p", 243: "360p", 166: "360p",
	133: "240p", 242: "240p",
	160: "144p", 278: "144p",
}

// qualityLabel assigns a human-readable quality label by height, falling
// back to a static itag table when height is unknown.
func qualityLabel(height, itag int) string {
	switch {
	case height >= 4320:
		return "4320p(8K)"
	case height >= 2160:
		return "2160p(4K)"
	case height >= 1440:
		return "1440p(2K)"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	case height >= 240:
		return "240p"
	case height >= 144:
		return "144p"
	}
	if label, ok := itagLabels[itag]; ok {
		return label
	}
	return "unknown"
}
