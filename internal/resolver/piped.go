// SPDX-License-Identifier: MIT

package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// pipedStreamResponse is the piped /streams/{id} shape.
type pipedStreamResponse struct {
	AudioStreams []pipedStream `json:"audioStreams"`
	VideoStreams []pipedStream `json:"videoStreams"`
	HLS          string        `json:"hls"`
}

type pipedStream struct {
	URL      string `json:"url"`
	Bitrate  int    `json:"bitrate"`
	Codec    string `json:"codec"`
	MimeType string `json:"mimeType"`
	Itag     int    `json:"itag"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FPS      int    `json:"fps"`
}

// parsePipedResponse decodes a piped stream response, accepting either a
// plain JSON body or an HTML page that wraps the same JSON inside a
// <script id="__NEXT_DATA__"> tag, which some piped instances serve instead
// of the documented JSON API.
func parsePipedResponse(body []byte) (*pipedStreamResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var resp pipedStreamResponse
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("resolver: decode piped JSON: %w", err)
		}
		return &resp, nil
	}

	blob, err := extractNextDataBlob(trimmed)
	if err != nil {
		return nil, err
	}
	var resp pipedStreamResponse
	if err := json.Unmarshal(blob, &resp); err != nil {
		return nil, fmt.Errorf("resolver: decode piped __NEXT_DATA__ blob: %w", err)
	}
	return &resp, nil
}

// extractNextDataBlob walks an HTML document looking for a
// <script id="__NEXT_DATA__"> tag and returns its text content.
func extractNextDataBlob(doc []byte) ([]byte, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(doc))
	inTarget := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return nil, fmt.Errorf("resolver: __NEXT_DATA__ script tag not found")
		case html.StartTagToken:
			tok := tokenizer.Token()
			if tok.Data != "script" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "id" && attr.Val == "__NEXT_DATA__" {
					inTarget = true
				}
			}
		case html.TextToken:
			if inTarget {
				return bytes.TrimSpace(tokenizer.Text()), nil
			}
		case html.EndTagToken:
			tok := tokenizer.Token()
			if tok.Data == "script" {
				inTarget = false
			}
		}
	}
}

func codecFromMime(mimeType string) string {
	lower := strings.ToLower(mimeType)
	switch {
	case strings.Contains(lower, "opus"):
		return "opus"
	case strings.Contains(lower, "aac"), strings.Contains(lower, "mp4a"):
		return "aac"
	default:
		return "other"
	}
}

func pipedAudioVariants(resp *pipedStreamResponse) []AudioVariant {
	out := make([]AudioVariant, 0, len(resp.AudioStreams))
	for _, s := range resp.AudioStreams {
		if s.URL == "" {
			continue
		}
		codec := s.Codec
		if codec == "" {
			codec = codecFromMime(s.MimeType)
		}
		out = append(out, AudioVariant{
			URL:        s.URL,
			Codec:      normalizeCodec(codec),
			MimeType:   s.MimeType,
			BitrateBPS: s.Bitrate,
		})
	}
	return out
}

func pipedVideoVariants(resp *pipedStreamResponse) []VideoVariant {
	out := make([]VideoVariant, 0, len(resp.VideoStreams))
	for _, s := range resp.VideoStreams {
		if s.URL == "" {
			continue
		}
		out = append(out, VideoVariant{
			URL:        s.URL,
			Codec:      s.Codec,
			Itag:       s.Itag,
			Height:     s.Height,
			Width:      s.Width,
			FPS:        s.FPS,
			BitrateBPS: s.Bitrate,
			Label:      qualityLabel(s.Height, s.Itag),
		})
	}
	return out
}
