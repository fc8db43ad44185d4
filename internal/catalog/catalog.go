// SPDX-License-Identifier: MIT

package catalog

import "github.com/wavelink/gateway/internal/upstream"

// Service implements the search and trending catalog endpoints on top of an
// Upstream Client.
type Service struct {
	client        *upstream.Client
	defaultRegion string
}

// New creates a catalog Service. defaultRegion is used when a request omits
// the region query parameter.
func New(client *upstream.Client, defaultRegion string) *Service {
	if defaultRegion == "" {
		defaultRegion = "IN"
	}
	return &Service{client: client, defaultRegion: defaultRegion}
}
