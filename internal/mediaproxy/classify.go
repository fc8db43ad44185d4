// SPDX-License-Identifier: MIT

package mediaproxy

import (
	"net/url"
	"strconv"
	"strings"
)

// itagAudioMime maps known googlevideo itags to their true audio MIME type,
// used when an upstream mislabels the response as text/plain.
var itagAudioMime = map[int]string{
	140: "audio/mp4", 141: "audio/mp4", 256: "audio/mp4", 258: "audio/mp4", 325: "audio/mp4", 328: "audio/mp4",
	249: "audio/webm", 250: "audio/webm", 251: "audio/webm", 171: "audio/webm", 172: "audio/webm",
}

// audioMimeForItag returns the correct audio MIME type for itag, defaulting
// to audio/webm for any itag not in the known table.
func audioMimeForItag(itag int) string {
	if m, ok := itagAudioMime[itag]; ok {
		return m
	}
	return "audio/webm"
}

// itagFromURL extracts the itag query parameter from a media URL, returning
// 0 if absent or unparsable.
func itagFromURL(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	v := u.Query().Get("itag")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// isGoogleVideoHost reports whether rawURL's host contains googlevideo.com.
func isGoogleVideoHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, "googlevideo.com")
}

// needsContentTypeOverride reports whether a 200 response with the given
// content-type, against srcURL, must have its content-type corrected before
// being forwarded to the client: status 200, content-type text/plain, and
// host contains googlevideo.com.
func needsContentTypeOverride(statusCode int, contentType, srcURL string) bool {
	return statusCode == 200 &&
		strings.Contains(strings.ToLower(contentType), "text/plain") &&
		isGoogleVideoHost(srcURL)
}
