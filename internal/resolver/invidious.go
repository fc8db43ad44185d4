// SPDX-License-Identifier: MIT

package resolver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// invidiousStreamResponse is the invidious /api/v1/videos/{id} shape,
// trimmed to the fields the resolver needs.
type invidiousStreamResponse struct {
	AdaptiveFormats []invidiousFormat `json:"adaptiveFormats"`
}

type invidiousFormat struct {
	Type            string `json:"type"`
	Bitrate         string `json:"bitrate"` // invidious serializes this as a string
	Clen            string `json:"clen"`
	Itag            json.Number `json:"itag"`
	URL             string `json:"url"`
	SignatureCipher string `json:"signatureCipher"`
	Height          int    `json:"height"`
	Width           int    `json:"width"`
	FPS             int    `json:"fps"`
}

func parseInvidiousResponse(body []byte) (*invidiousStreamResponse, error) {
	var resp invidiousStreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resolver: decode invidious JSON: %w", err)
	}
	return &resp, nil
}

// resolveFormatURL produces a playable URL for an invidious adaptive format,
// trying (in order): the literal url field, the signature_cipher payload,
// and finally a synthesized /latest_version fallback keyed by itag.
func resolveFormatURL(instance, videoID string, f invidiousFormat) string {
	if f.URL != "" {
		return f.URL
	}
	if f.SignatureCipher != "" {
		if u := fromSignatureCipher(f.SignatureCipher); u != "" {
			return u
		}
	}
	itag := f.Itag.String()
	if itag != "" && itag != "0" {
		return fmt.Sprintf("%s/latest_version?id=%s&itag=%s&local=true", instance, videoID, itag)
	}
	return ""
}

// fromSignatureCipher parses a form-encoded signature_cipher payload,
// extracting the base url and appending the signature as sig= (or &sig= if
// the url already carries a query string).
func fromSignatureCipher(cipher string) string {
	values, err := url.ParseQuery(cipher)
	if err != nil {
		return ""
	}
	base := values.Get("url")
	if base == "" {
		return ""
	}
	sig := values.Get("sig")
	if sig == "" {
		sig = values.Get("s")
	}
	if sig == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "sig=" + sig
}

func invidiousCodecFromType(t string) string {
	lower := strings.ToLower(t)
	switch {
	case strings.Contains(lower, "opus"):
		return "opus"
	case strings.Contains(lower, "mp4a"), strings.Contains(lower, "aac"):
		return "aac"
	default:
		return "other"
	}
}

func invidiousAudioVariants(instance, videoID string, resp *invidiousStreamResponse) []AudioVariant {
	var out []AudioVariant
	for _, f := range resp.AdaptiveFormats {
		if !strings.HasPrefix(f.Type, "audio/") {
			continue
		}
		u := resolveFormatURL(instance, videoID, f)
		if u == "" {
			continue
		}
		bitrate := atoiOrZero(f.Bitrate)
		mime := strings.SplitN(f.Type, ";", 2)[0]
		out = append(out, AudioVariant{
			URL:           u,
			Codec:         normalizeCodec(invidiousCodecFromType(f.Type)),
			MimeType:      mime,
			BitrateBPS:    bitrate,
			ContentLength: int64(atoiOrZero(f.Clen)),
		})
	}
	return out
}

func invidiousVideoVariants(instance, videoID string, resp *invidiousStreamResponse) []VideoVariant {
	var out []VideoVariant
	for _, f := range resp.AdaptiveFormats {
		if !strings.HasPrefix(f.Type, "video/") {
			continue
		}
		u := resolveFormatURL(instance, videoID, f)
		if u == "" {
			continue
		}
		itag := 0
		if n, err := f.Itag.Int64(); err == nil {
			itag = int(n)
		}
		out = append(out, VideoVariant{
			URL:        u,
			Codec:      invidiousCodecFromType(f.Type),
			Itag:       itag,
			Height:     f.Height,
			Width:      f.Width,
			FPS:        f.FPS,
			BitrateBPS: atoiOrZero(f.Bitrate),
			Label:      qualityLabel(f.Height, itag),
		})
	}
	return out
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
