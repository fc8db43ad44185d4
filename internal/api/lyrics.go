// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/wavelink/gateway/internal/cache"
)

const lyricsTTL = time.Hour

// lyricsProvider fetches best-effort lyrics from api.lyrics.ovh, caching
// hits and misses alike so a repeatedly-missing title doesn't re-drive an
// upstream round trip on every page load.
type lyricsProvider struct {
	httpClient *http.Client
	cache      cache.Cache
}

func newLyricsProvider(c cache.Cache) *lyricsProvider {
	return &lyricsProvider{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		cache:      c,
	}
}

type lyricsOVHResponse struct {
	Lyrics string `json:"lyrics"`
}

func lyricsCacheKey(artist, title string) string {
	return "lyrics::" + artist + "/" + title
}

// Lookup returns the lyrics text for artist/title, or "", false if none are
// available.
func (lp *lyricsProvider) Lookup(artist, title string) (string, bool) {
	key := lyricsCacheKey(artist, title)
	if cached, ok := lp.cache.Get(key); ok {
		text, _ := cached.(string)
		return text, text != ""
	}

	u := "https://api.lyrics.ovh/v1/" + url.PathEscape(artist) + "/" + url.PathEscape(title)
	resp, err := lp.httpClient.Get(u)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		lp.cache.Set(key, "", lyricsTTL)
		return "", false
	}

	var parsed lyricsOVHResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false
	}
	lp.cache.Set(key, parsed.Lyrics, lyricsTTL)
	return parsed.Lyrics, parsed.Lyrics != ""
}
