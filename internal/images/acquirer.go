package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/httpx"
	"mslearn-downloader/internal/model"
)

// Acquirer downloads a job's image set under bounded concurrency.
//
// The url → asset map an Acquire call produces is exclusive to that
// call; nothing is shared across jobs, so a cancelled job leaves no
// state behind for a resubmission to trip over.
type Acquirer struct {
	client  *httpx.Client
	cfg     config.ImagesConfig
	workers int
	log     *logrus.Logger
}

// NewAcquirer creates an Acquirer with the given pool width.
func NewAcquirer(client *httpx.Client, cfg config.ImagesConfig, workers int, log *logrus.Logger) *Acquirer {
	if workers < 1 {
		workers = 1
	}
	return &Acquirer{client: client, cfg: cfg, workers: workers, log: log}
}

// Acquire downloads every distinct source URL in refs into dir and
// returns the outcome per URL. Duplicate refs collapse to a single
// fetch. onProgress, if non-nil, is called as each distinct URL
// finishes (successfully or not).
//
// The returned error is non-nil only when the context was cancelled;
// individual failures live inside the assets.
func (a *Acquirer) Acquire(ctx context.Context, refs []model.ImageRef, dir string, onProgress func(done, total int)) (map[string]*model.ImageAsset, error) {
	distinct := dedup(refs)
	assets := make(map[string]*model.ImageAsset, len(distinct))
	if len(distinct) == 0 {
		return assets, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	results := make([]*model.ImageAsset, len(distinct))
	for i, ref := range distinct {
		g.Go(func() error {
			asset := a.acquireOne(gctx, ref, dir)
			results[i] = asset

			mu.Lock()
			done++
			d := done
			mu.Unlock()
			if onProgress != nil {
				onProgress(d, len(distinct))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, asset := range results {
		assets[asset.SourceURL] = asset
	}
	return assets, nil
}

// acquireOne downloads a single URL with per-image retry and writes the
// (possibly rasterized) payload to disk.
func (a *Acquirer) acquireOne(ctx context.Context, ref model.ImageRef, dir string) *model.ImageAsset {
	asset := &model.ImageAsset{SourceURL: ref.SourceURL}

	data, err := a.download(ctx, ref, asset)
	if err != nil {
		asset.Class, asset.Err = classify(err), err.Error()
		a.log.WithField("url", ref.SourceURL).Warnf("image failed (%s): %v", asset.Class, err)
		return asset
	}

	if ref.Kind == model.KindVector {
		raster, err := RasterizeSVG(data, a.cfg.VectorUpscale)
		if err != nil {
			asset.Class, asset.Err = model.FailDecode, err.Error()
			a.log.WithField("url", ref.SourceURL).Warnf("svg rasterization failed: %v", err)
			return asset
		}
		data = raster
	} else if err := checkRaster(data); err != nil {
		asset.Class, asset.Err = model.FailDecode, err.Error()
		return asset
	}

	name := Filename(ref.SourceURL, ref.Kind == model.KindVector)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		asset.Class, asset.Err = model.FailDecode, err.Error()
		return asset
	}

	asset.OK = true
	asset.FileName = name
	asset.LocalPath = path
	return asset
}

// download fetches the payload, retrying transient failures up to the
// configured attempt budget. Permanent failures (403, 404) return after
// the first attempt.
func (a *Acquirer) download(ctx context.Context, ref model.ImageRef, asset *model.ImageAsset) ([]byte, error) {
	attempts := a.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for try := 0; try < attempts; try++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		asset.Attempts++
		data, err := a.client.DownloadBytes(ctx, ref.SourceURL, ref.Referer)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !httpx.IsTransient(err) || try == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.cfg.RetryDelay << uint(try)):
		}
	}
	return nil, lastErr
}

// dedup keeps the first ref per distinct source URL, preserving order.
func dedup(refs []model.ImageRef) []model.ImageRef {
	seen := make(map[string]struct{}, len(refs))
	var out []model.ImageRef
	for _, ref := range refs {
		if _, ok := seen[ref.SourceURL]; ok {
			continue
		}
		seen[ref.SourceURL] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// classify maps a download error onto the failure taxonomy.
func classify(err error) model.FailureClass {
	switch {
	case httpx.IsRateLimited(err):
		return model.FailRateLimited
	case httpx.IsForbidden(err):
		return model.FailForbidden
	case httpx.IsNotFound(err):
		return model.FailNotFound
	case httpx.IsTimeout(err) || errors.Is(err, context.Canceled):
		return model.FailTimeout
	case httpx.StatusCode(err) != 0:
		return model.FailNotFound
	default:
		return model.FailTimeout
	}
}

// checkRaster rejects payloads that are definitely not images. Formats
// without a registered decoder (avif and friends) pass through: unknown
// is not the same as corrupt.
func checkRaster(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty image payload")
	}
	_, _, err := image.Decode(bytes.NewReader(data))
	if err == nil || errors.Is(err, image.ErrFormat) {
		return nil
	}
	return err
}
