package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/model"
)

// Resolver turns a catalog item uid into the full tree of modules and
// units the download pipeline works through.
type Resolver struct {
	client      *Client
	contentBase string
	log         *logrus.Logger
}

// NewResolver creates a Resolver backed by the given catalog client.
func NewResolver(client *Client, log *logrus.Logger) *Resolver {
	return &Resolver{
		client:      client,
		contentBase: strings.TrimRight(client.cfg.ContentBaseURL, "/"),
		log:         log,
	}
}

// Resolve fetches the tree for one item uid. The uid may name a learning
// path, a course or a single module; the item's type is discovered from
// whichever catalog collection contains it.
//
// Returns ErrNotFound when no collection knows the uid. Any other error
// is a transient upstream failure the caller may retry.
func (r *Resolver) Resolve(ctx context.Context, uid string) (*model.ItemTree, error) {
	if path, err := r.client.learningPath(ctx, uid); err == nil {
		return r.resolvePath(ctx, path)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if course, err := r.client.course(ctx, uid); err == nil {
		return r.resolveCourse(ctx, course)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	mods, err := r.client.modules(ctx, []string{uid})
	if err != nil {
		return nil, err
	}
	if m, ok := mods[uid]; ok {
		item, err := m.toItem()
		if err != nil {
			return nil, err
		}
		modTree, err := r.moduleTree(ctx, m)
		if err != nil {
			return nil, err
		}
		return &model.ItemTree{Item: item, Modules: []model.ModuleTree{modTree}}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
}

func (r *Resolver) resolvePath(ctx context.Context, path *pathDTO) (*model.ItemTree, error) {
	item, err := path.toItem()
	if err != nil {
		return nil, err
	}
	r.log.WithField("uid", item.UID).Infof("resolving learning path with %d modules", len(path.Modules))

	modules, err := r.moduleTrees(ctx, path.Modules)
	if err != nil {
		return nil, err
	}
	return &model.ItemTree{Item: item, Modules: modules}, nil
}

// resolveCourse expands a course into the modules of every learning path
// in its study guide, in declared order. Loosely-typed study guide
// entries with unknown types are rejected at this boundary.
func (r *Resolver) resolveCourse(ctx context.Context, course *courseDTO) (*model.ItemTree, error) {
	item, err := course.toItem()
	if err != nil {
		return nil, err
	}

	var pathUIDs []string
	for _, ref := range course.StudyGuide {
		typ, err := model.ParseItemType(ref.Type)
		if err != nil {
			return nil, fmt.Errorf("course %s study guide: %w", course.UID, err)
		}
		if typ == model.TypeLearningPath {
			pathUIDs = append(pathUIDs, ref.UID)
		}
	}
	if len(pathUIDs) == 0 {
		return nil, fmt.Errorf("%w: course %s has no learning paths", ErrNotFound, course.UID)
	}
	r.log.WithField("uid", item.UID).Infof("resolving course with %d learning paths", len(pathUIDs))

	tree := &model.ItemTree{Item: item}
	for _, uid := range pathUIDs {
		path, err := r.client.learningPath(ctx, uid)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				r.log.Warnf("course %s references missing learning path %s", course.UID, uid)
				continue
			}
			return nil, err
		}
		modules, err := r.moduleTrees(ctx, path.Modules)
		if err != nil {
			return nil, err
		}
		tree.Modules = append(tree.Modules, modules...)
	}
	return tree, nil
}

// moduleTrees fetches a set of modules and their units, preserving the
// declared module order. Modules missing from the catalog response are
// skipped with a warning rather than failing the whole item.
func (r *Resolver) moduleTrees(ctx context.Context, moduleUIDs []string) ([]model.ModuleTree, error) {
	byUID, err := r.client.modules(ctx, moduleUIDs)
	if err != nil {
		return nil, err
	}

	var out []model.ModuleTree
	for _, uid := range moduleUIDs {
		m, ok := byUID[uid]
		if !ok {
			r.log.Warnf("module %s not present in catalog response", uid)
			continue
		}
		tree, err := r.moduleTree(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, tree)
	}
	return out, nil
}

func (r *Resolver) moduleTree(ctx context.Context, m moduleDTO) (model.ModuleTree, error) {
	item, err := m.toItem()
	if err != nil {
		return model.ModuleTree{}, err
	}

	unitMeta, err := r.client.units(ctx, m.Units)
	if err != nil {
		return model.ModuleTree{}, err
	}

	tree := model.ModuleTree{Module: item}
	number := 0
	for _, unitUID := range m.Units {
		meta, ok := unitMeta[unitUID]
		if !ok {
			r.log.Warnf("unit %s missing from catalog response", unitUID)
			continue
		}
		number++
		moduleURL := r.absoluteURL(m.URL)
		tree.Units = append(tree.Units, &model.UnitRef{
			UID:        unitUID,
			ModuleUID:  m.UID,
			ModuleURL:  moduleBaseURL(moduleURL),
			Title:      meta.Title,
			Number:     number,
			NominalURL: nominalUnitURL(moduleURL, number, unitUID),
		})
	}
	return tree, nil
}

// absoluteURL resolves host-relative module URLs, which the catalog
// sometimes returns, against the configured content host.
func (r *Resolver) absoluteURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") && r.contentBase != "" {
		return r.contentBase + rawURL
	}
	return rawURL
}

// moduleBaseURL strips query parameters from a module page URL so unit
// addresses can be joined onto it.
func moduleBaseURL(moduleURL string) string {
	base := moduleURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimRight(base, "/")
}

// nominalUnitURL derives the most common unit address pattern,
// {module}/{ordinal}-{uid-slug}. It is a guess; the content fetcher
// falls back to URL recovery when it does not resolve.
func nominalUnitURL(moduleURL string, number int, unitUID string) string {
	parts := strings.Split(unitUID, ".")
	slug := parts[len(parts)-1]
	return fmt.Sprintf("%s/%d-%s", moduleBaseURL(moduleURL), number, slug)
}
