package model

// ImageKind distinguishes raster payloads, which pass through unchanged,
// from vector payloads, which are rasterized before rendering.
type ImageKind string

const (
	KindRaster ImageKind = "raster"
	KindVector ImageKind = "vector"
)

// ImageRef identifies one content image referenced by a unit.
//
// Decorative images (presentation role, achievement badges) are filtered
// out during extraction and never become ImageRefs. Refs are deduplicated
// by SourceURL across all units of a job: at most one acquisition attempt
// is made per distinct URL no matter how many units reference it.
type ImageRef struct {
	// SourceURL is the absolute remote address and the dedup key.
	SourceURL string

	// Alt is the descriptive alternative text, kept for rendering.
	Alt string

	// Referer is the unit page the image was referenced from. Some hosts
	// refuse requests without it.
	Referer string

	Kind ImageKind
}

// FailureClass categorizes why an image acquisition failed.
type FailureClass string

const (
	FailRateLimited FailureClass = "rate-limited"
	FailNotFound    FailureClass = "not-found"
	FailForbidden   FailureClass = "forbidden"
	FailTimeout     FailureClass = "network-timeout"
	FailDecode      FailureClass = "decode-error"
)

// ImageAsset records the outcome of acquiring one distinct image URL.
// Many units may reference the same asset.
type ImageAsset struct {
	SourceURL string
	LocalPath string
	FileName  string

	// Attempts is how many network fetches were made for this asset.
	Attempts int

	OK    bool
	Class FailureClass
	Err   string
}

// ImageSummary aggregates per-image outcomes for one item.
type ImageSummary struct {
	Total  int           `json:"total"`
	Saved  int           `json:"saved"`
	Failed []FailedImage `json:"failed,omitempty"`
}

// FailedImage enumerates one unreachable image in the job's final report.
type FailedImage struct {
	SourceURL string       `json:"source_url"`
	Class     FailureClass `json:"class"`
	Err       string       `json:"error,omitempty"`
}

// UnitContent is the cleaned markup of a single unit plus its extracted
// content images. Created once by the content fetcher and immutable
// thereafter; the orchestrator produces a rewritten copy of HTML for
// rendering rather than mutating it in place.
type UnitContent struct {
	UnitUID string
	Title   string
	URL     string
	HTML    string
	Text    string
	Images  []ImageRef
}
