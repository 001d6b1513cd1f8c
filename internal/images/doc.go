// Package images acquires the content images referenced by a job's
// units.
//
// Acquisition runs in a bounded worker pool and deduplicates by source
// URL: a logo shared by every unit of a course is fetched once per job,
// not once per unit. Each distinct URL gets its own retry budget for
// transient failures (429, 5xx, timeouts); permanent failures (403,
// 404) are recorded immediately. A failed image never aborts the job;
// it surfaces as an ImageAsset with its failure class in the job's
// final summary.
//
// Vector images are rasterized to PNG at a configurable upscale factor
// for rendering fidelity; raster payloads are saved as fetched.
package images
