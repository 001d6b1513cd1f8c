package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mslearn-downloader/internal/catalog"
	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/fsutil"
	"mslearn-downloader/internal/httpx"
	"mslearn-downloader/internal/images"
	"mslearn-downloader/internal/job"
	"mslearn-downloader/internal/model"
	"mslearn-downloader/internal/render"
	"mslearn-downloader/internal/scrape"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Manager coordinates download jobs.
type Manager struct {
	settings *config.Settings
	catalog  *catalog.Client
	resolver *catalog.Resolver
	fetcher  *scrape.Fetcher
	acquirer *images.Acquirer
	renderer render.Renderer
	tracker  *job.Tracker
	log      *logrus.Logger

	onProgress func(ProgressEvent)
}

// NewManager wires the pipeline from settings. onProgress may be nil;
// interactive frontends pass a callback, the HTTP surface polls the
// tracker instead.
func NewManager(settings *config.Settings, tracker *job.Tracker, renderer render.Renderer, log *logrus.Logger, onProgress func(ProgressEvent)) *Manager {
	client := httpx.NewClient(settings.API.Timeout)
	catalogClient := catalog.NewClient(settings.API, log)

	return &Manager{
		settings:   settings,
		catalog:    catalogClient,
		resolver:   catalog.NewResolver(catalogClient, log),
		fetcher:    scrape.NewFetcher(client, scrape.NewRecoverer(client, log), log),
		acquirer:   images.NewAcquirer(client, settings.Images, settings.Download.ImageWorkers, log),
		renderer:   renderer,
		tracker:    tracker,
		log:        log,
		onProgress: onProgress,
	}
}

// Catalog exposes the catalog client for search passthrough.
func (m *Manager) Catalog() *catalog.Client {
	return m.catalog
}

// Submit registers a job for the given items and starts it on a new
// goroutine. The returned id is immediately pollable.
//
// The job is detached from ctx's cancellation: a submitted job outlives
// its originating request and is stopped through the tracker's Cancel,
// never by the caller's context going away.
func (m *Manager) Submit(ctx context.Context, items []model.ItemRequest) (string, error) {
	if len(items) > m.settings.Download.MaxItemsPerJob {
		return "", fmt.Errorf("batch of %d items exceeds limit of %d", len(items), m.settings.Download.MaxItemsPerJob)
	}

	id, jobCtx, err := m.tracker.Create(context.WithoutCancel(ctx), len(items))
	if err != nil {
		return "", err
	}
	go func() {
		if err := m.Run(jobCtx, id, items); err != nil {
			m.log.WithField("job", id).Errorf("job ended with error: %v", err)
		}
	}()
	return id, nil
}

// Run executes a job to completion. It is exported so callers that
// want synchronous behavior (the CLI) can drive a job directly.
func (m *Manager) Run(ctx context.Context, jobID string, items []model.ItemRequest) error {
	if len(items) == 0 {
		return m.tracker.Update(jobID, func(j *model.Job) {
			j.Status = model.JobCompleted
			j.Progress = 100
			j.Message = "nothing to download"
		})
	}

	m.setMessage(jobID, model.JobRunning, "resolving catalog")
	m.progress(ProgressEvent{Message: "Resolving catalog items", Level: LevelInfo})

	trees := make([]*model.ItemTree, len(items))
	resolveErrs := make([]error, len(items))
	totalUnits := 0
	for i, req := range items {
		if err := ctx.Err(); err != nil {
			return m.finishCancelled(jobID)
		}
		tree, err := m.resolver.Resolve(ctx, req.UID)
		if err != nil {
			resolveErrs[i] = err
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", req.UID, err), Level: LevelError})
			continue
		}
		if max := m.settings.Download.MaxUnitsPerItem; tree.UnitCount() > max {
			resolveErrs[i] = fmt.Errorf("item has %d units, limit is %d", tree.UnitCount(), max)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", req.UID, resolveErrs[i]), Level: LevelError})
			continue
		}
		trees[i] = tree
		totalUnits += tree.UnitCount()
		m.progress(ProgressEvent{Message: fmt.Sprintf("Found %s: %s (%d units)", tree.Item.Type, tree.Item.Title, tree.UnitCount()), Level: LevelInfo})
	}

	doneUnits := 0
	failedItems := 0
	takenDirs := map[string]bool{}

	for i, req := range items {
		if err := ctx.Err(); err != nil {
			return m.finishCancelled(jobID)
		}

		if resolveErrs[i] != nil {
			failedItems++
			m.recordOutcome(jobID, model.ItemOutcome{
				ItemUID: req.UID,
				Title:   req.Title,
				Status:  "failed",
			}, fmt.Sprintf("resolving catalog item: %v", resolveErrs[i]))
			continue
		}

		outcome, unitsDone, err := m.processItem(ctx, jobID, trees[i], takenDirs, doneUnits, totalUnits)
		doneUnits += unitsDone
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return m.finishCancelled(jobID)
			}
			failedItems++
			m.recordOutcome(jobID, outcome, fmt.Sprintf("processing %s: %v", trees[i].Item.UID, err))
			continue
		}
		m.recordOutcome(jobID, outcome, "")
	}

	if failedItems == len(items) {
		m.progress(ProgressEvent{Message: "All items failed", Level: LevelError})
		return m.tracker.Update(jobID, func(j *model.Job) {
			j.Status = model.JobFailed
			j.Reason = "all items failed"
			j.Message = "failed"
		})
	}

	m.progress(ProgressEvent{Message: "Job finished", Level: LevelSuccess})
	return m.tracker.Update(jobID, func(j *model.Job) {
		j.Status = model.JobCompleted
		j.Progress = 100
		j.Message = "done"
	})
}

// processItem runs one resolved item through fetch, image acquisition
// and rendering. It returns the outcome to record and the number of
// units attempted, which feeds job-level progress.
func (m *Manager) processItem(ctx context.Context, jobID string, tree *model.ItemTree, takenDirs map[string]bool, doneBefore, totalUnits int) (model.ItemOutcome, int, error) {
	outcome := model.ItemOutcome{
		ItemUID: tree.Item.UID,
		Title:   tree.Item.Title,
	}

	itemDir := fsutil.ItemDir(m.settings.Storage.OutputDir, tree.Item.Title, takenDirs)
	if err := fsutil.EnsureDir(itemDir); err != nil {
		return outcome, 0, err
	}
	outcome.OutputDir = itemDir

	contents, failures, fetched := m.fetchUnits(ctx, jobID, tree, doneBefore, totalUnits)
	if ctx.Err() != nil {
		return outcome, fetched, ctx.Err()
	}
	outcome.FailedUnits = failures
	outcome.SucceededUnits = len(contents)

	if len(contents) == 0 {
		outcome.Status = "failed"
		return outcome, fetched, errors.New("no unit could be fetched")
	}

	if m.settings.Images.Enabled {
		summary, err := m.acquireImages(ctx, jobID, tree, contents, itemDir)
		if err != nil {
			return outcome, fetched, err
		}
		outcome.Images = summary
	}

	m.setMessage(jobID, model.JobRunning, "rendering output")
	m.progress(ProgressEvent{Message: fmt.Sprintf("Rendering %s", tree.Item.Title), Level: LevelVerbose})
	if err := m.renderer.Render(ctx, tree, contents, itemDir); err != nil {
		return outcome, fetched, fmt.Errorf("rendering output: %w", err)
	}

	if len(failures) == 0 {
		outcome.Status = "succeeded"
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s", tree.Item.Title), Level: LevelSuccess})
	} else {
		outcome.Status = "partial"
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d units failed", tree.Item.Title, len(failures)), Level: LevelWarning})
	}
	return outcome, fetched, nil
}

// fetchUnits downloads every unit of the item with a bounded pool,
// reassembling results keyed by unit UID. A unit failure is recorded
// and the rest of the pool keeps going.
func (m *Manager) fetchUnits(ctx context.Context, jobID string, tree *model.ItemTree, doneBefore, totalUnits int) (map[string]*model.UnitContent, []model.UnitFailure, int) {
	var units []*model.UnitRef
	for _, mod := range tree.Modules {
		units = append(units, mod.Units...)
	}

	contents := make(map[string]*model.UnitContent, len(units))
	var failures []model.UnitFailure
	var mu sync.Mutex
	attempted := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.Download.UnitWorkers)

	for _, unit := range units {
		g.Go(func() error {
			content, err := m.fetcher.Fetch(gctx, unit)

			mu.Lock()
			attempted++
			done := attempted
			if err != nil {
				failures = append(failures, model.UnitFailure{
					UnitUID: unit.UID,
					Title:   unit.Title,
					Reason:  err.Error(),
				})
			} else {
				contents[unit.UID] = content
			}
			mu.Unlock()

			if err != nil && gctx.Err() == nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching %s: %v", unit.Title, err), Level: LevelError})
			}

			m.updateProgress(jobID, doneBefore+done, totalUnits, fmt.Sprintf("fetching unit %d/%d", done, len(units)))
			return nil
		})
	}
	_ = g.Wait()

	// Keep failures in a stable order for pollers.
	sort.Slice(failures, func(i, j int) bool { return failures[i].UnitUID < failures[j].UnitUID })

	return contents, failures, attempted
}

// acquireImages collects the item's image refs in declared unit order,
// downloads the distinct set and rewrites each unit's markup to the
// local copies.
func (m *Manager) acquireImages(ctx context.Context, jobID string, tree *model.ItemTree, contents map[string]*model.UnitContent, itemDir string) (model.ImageSummary, error) {
	var refs []model.ImageRef
	for _, mod := range tree.Modules {
		for _, unit := range mod.Units {
			if content, ok := contents[unit.UID]; ok {
				refs = append(refs, content.Images...)
			}
		}
	}

	var summary model.ImageSummary
	if len(refs) == 0 {
		return summary, nil
	}

	assets, err := m.acquirer.Acquire(ctx, refs, filepath.Join(itemDir, "images"), func(done, total int) {
		m.setMessage(jobID, model.JobRunning, fmt.Sprintf("downloading images %d/%d", done, total))
	})
	if err != nil {
		return summary, err
	}

	summary.Total = len(assets)
	for _, asset := range assets {
		if asset.OK {
			summary.Saved++
			continue
		}
		summary.Failed = append(summary.Failed, model.FailedImage{
			SourceURL: asset.SourceURL,
			Class:     asset.Class,
			Err:       asset.Err,
		})
	}
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i].SourceURL < summary.Failed[j].SourceURL })

	for uid, content := range contents {
		rewritten, err := images.RewriteHTML(content.HTML, assets)
		if err != nil {
			m.log.WithField("unit", uid).Warnf("rewriting image references: %v", err)
			continue
		}
		updated := *content
		updated.HTML = rewritten
		contents[uid] = &updated
	}

	if summary.Failed != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%d of %d images failed for %s", len(summary.Failed), summary.Total, tree.Item.Title), Level: LevelWarning})
	}
	return summary, nil
}

func (m *Manager) finishCancelled(jobID string) error {
	m.progress(ProgressEvent{Message: "Job cancelled", Level: LevelWarning})
	return m.tracker.Update(jobID, func(j *model.Job) {
		j.Status = model.JobFailed
		j.Reason = "cancelled"
		j.Message = "cancelled"
	})
}

func (m *Manager) recordOutcome(jobID string, outcome model.ItemOutcome, reason string) {
	if outcome.Status == "" {
		outcome.Status = "failed"
	}
	if reason != "" {
		m.log.WithField("item", outcome.ItemUID).Warn(reason)
	}
	_ = m.tracker.Update(jobID, func(j *model.Job) {
		j.Items = append(j.Items, outcome)
	})
}

func (m *Manager) setMessage(jobID string, status model.JobStatus, msg string) {
	_ = m.tracker.Update(jobID, func(j *model.Job) {
		j.Status = status
		j.Message = msg
	})
}

func (m *Manager) updateProgress(jobID string, doneUnits, totalUnits int, msg string) {
	if totalUnits == 0 {
		return
	}
	pct := doneUnits * 100 / totalUnits
	if pct > 99 {
		// 100 is reserved for the terminal transition.
		pct = 99
	}
	_ = m.tracker.Update(jobID, func(j *model.Job) {
		j.Progress = pct
		j.Message = msg
	})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
