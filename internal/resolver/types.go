// SPDX-License-Identifier: MIT

// Package resolver turns a YouTube video id into a byte-accurate
// ResolvedStream by querying one upstream service kind, falling back to the
// other, and folding two incompatible wire schemas into one canonical shape.
//
// The piped and invidious shapes are parsed into distinct intermediate
// representations (pipedStreamResponse, invidiousStreamResponse) and only
// folded together when building the final ladders; they are never unified
// at the parser level.
package resolver

// AudioVariant is one entry of a ResolvedStream's ranked audio ladder.
type AudioVariant struct {
	URL           string
	Codec         string
	MimeType      string
	BitrateBPS    int
	ContentLength int64 // 0 when unknown
}

// VideoVariant is one entry of a ResolvedStream's ranked video ladder.
type VideoVariant struct {
	URL        string
	Codec      string
	Itag       int
	Height     int
	Width      int
	FPS        int
	BitrateBPS int
	Label      string // e.g. "1080p", "2160p(4K)"
}

// ResolvedStream is the normalized output of Resolve.
type ResolvedStream struct {
	AudioURL    string
	ManifestURL string // optional HLS master manifest
	MimeType    string
	AudioLadder []AudioVariant
	VideoLadder []VideoVariant
	Source      string // "piped" or "invidious"
	Instance    string // the base URL that produced this result
}

// Options configures a single Resolve call.
type Options struct {
	// PreferredSource, when "invidious", tries invidious first. Any other
	// value (including empty) tries piped first, per spec.
	PreferredSource string
	// PreferredInstance, if present, is promoted to the head of the chosen
	// service kind's candidate list for this call only.
	PreferredInstance string
}
