package model

import "fmt"

// ItemType is the kind of catalog entry a CatalogItem represents.
//
// The catalog API reports item types as loosely-typed strings; they are
// validated into an ItemType at the JSON boundary so unknown types are
// rejected early instead of propagating inward.
type ItemType string

const (
	TypeLearningPath ItemType = "learningPath"
	TypeCourse       ItemType = "course"
	TypeModule       ItemType = "module"
)

// ParseItemType validates a raw catalog type string.
//
// The API uses both singular ("learningPath") and plural collection names
// ("learningPaths"); both spellings are accepted.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "learningPath", "learningPaths":
		return TypeLearningPath, nil
	case "course", "courses":
		return TypeCourse, nil
	case "module", "modules":
		return TypeModule, nil
	}
	return "", fmt.Errorf("unknown catalog item type %q", s)
}

// CatalogItem is a single validated entry from the remote catalog.
// Items are immutable once fetched and read-only downstream.
type CatalogItem struct {
	UID     string   `json:"uid"`
	Type    ItemType `json:"type"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`

	// URL is the nominal public page for the item.
	URL string `json:"url"`
}

// ItemRequest identifies one catalog item in a submitted download batch.
// Title is optional and only used for progress messages before the item
// has been resolved.
type ItemRequest struct {
	UID   string `json:"uid"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// UnitRef points at the smallest content node: one page of instructional
// HTML within a module.
type UnitRef struct {
	UID       string
	ModuleUID string
	ModuleURL string
	Title     string

	// Number is the 1-based ordinal of the unit within its module, as
	// declared by the catalog. Used for slug construction and as the
	// last-resort match during URL recovery.
	Number int

	// NominalURL is the address derived from catalog metadata. It is not
	// guaranteed to resolve; see ResolvedURL.
	NominalURL string

	// ResolvedURL is the corrected fetch address discovered by URL
	// recovery. Set once on first successful resolution and never
	// re-derived within a job.
	ResolvedURL string
}

// FetchURL returns the address content should be fetched from, preferring
// a previously resolved URL over the nominal one.
func (u *UnitRef) FetchURL() string {
	if u.ResolvedURL != "" {
		return u.ResolvedURL
	}
	return u.NominalURL
}

// ModuleTree is one module of a resolved item together with its units in
// catalog-declared order.
type ModuleTree struct {
	Module CatalogItem
	Units  []*UnitRef
}

// ItemTree is the resolved tree for one catalog item. For a module item
// it contains exactly one ModuleTree; for learning paths and courses it
// contains every module in declared order.
type ItemTree struct {
	Item    CatalogItem
	Modules []ModuleTree
}

// UnitCount returns the total number of units across all modules.
func (t *ItemTree) UnitCount() int {
	n := 0
	for _, m := range t.Modules {
		n += len(m.Units)
	}
	return n
}
