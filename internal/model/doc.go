// Package model defines the core data structures used throughout
// mslearn-downloader.
//
// # Catalog types
//
// CatalogItem is a validated catalog entry (learning path, course or
// module). ItemTree is the fully resolved shape of one item: its modules
// in catalog-declared order, each carrying its units as UnitRef values:
//
//	tree, err := resolver.Resolve(ctx, "learn.wwl.introduction-to-azure")
//	for _, mod := range tree.Modules {
//	    for _, unit := range mod.Units {
//	        fmt.Println(unit.Title, unit.NominalURL)
//	    }
//	}
//
// # Content types
//
// UnitContent holds the cleaned HTML of one unit plus the content images
// referenced by it. ImageRef identifies a single remote image; ImageAsset
// records the outcome of downloading one.
//
// # Job
//
// Job is the pollable progress record for one submitted batch download.
// It is owned by the job tracker; callers only ever see copies obtained
// through Snapshot.
package model
