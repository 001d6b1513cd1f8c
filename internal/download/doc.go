// Package download coordinates whole download jobs.
//
// The Manager drives one job end to end: it resolves each requested
// catalog item into a unit tree, fetches unit content with a bounded
// worker pool, hands the item's deduplicated image set to the image
// acquirer, rewrites markup to point at the local copies and invokes
// the renderer. Items are processed one at a time; the parallelism
// lives inside an item, in the unit and image pools.
//
// A failed unit or image never aborts its item and a failed item never
// aborts the job. The job itself fails only when every item failed or
// the job was cancelled. All externally visible state flows through
// the job tracker.
package download
