// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldEvent     = "event"
	FieldComponent = "component"

	// Upstream / instance fields
	FieldServiceKind = "kind"
	FieldInstance    = "url"
	FieldReason      = "reason"
	FieldLatencyMS   = "latency_ms"

	// Media fields
	FieldVideoID = "video_id"
	FieldSource  = "source"
	FieldItag    = "itag"
)
