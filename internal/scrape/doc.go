// Package scrape fetches unit pages and reduces them to their
// instructional content.
//
// Fetching a unit is best-effort in two stages: a direct fetch of the
// unit's nominal (or previously resolved) URL, and, when that fails with
// a not-found condition, a single URL recovery pass that inspects the
// parent module's page for the corrected address. Recovery failure marks
// only the unit as failed; it never escalates past its owning worker.
//
// Cleaning keeps the page's main content region, strips navigation,
// feedback and metadata chrome, rewrites hidden quiz forms into static
// markup, and extracts the content images referenced by the unit.
package scrape
