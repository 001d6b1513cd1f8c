// Package catalog talks to the remote learning-content catalog API.
//
// The package handles two main use cases:
//
//  1. Resolving a catalog item uid into its full tree of modules and
//     units, in the order the catalog declares them
//  2. Searching the catalog for items matching a free-text query
//
// # Resolving
//
//	client := catalog.NewClient(settings.API, log)
//	resolver := catalog.NewResolver(client, log)
//
//	tree, err := resolver.Resolve(ctx, "learn.wwl.azure-fundamentals")
//	if errors.Is(err, catalog.ErrNotFound) {
//	    // the catalog has no such uid
//	}
//
// # Paging
//
// The catalog API paginates large collections. The client follows
// continuation links until every child is enumerated; results are never
// silently truncated.
package catalog
