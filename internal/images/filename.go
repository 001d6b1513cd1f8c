package images

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// Filename derives a stable local name for a source URL: the URL path's
// base stem plus the first 8 hex digits of the full URL's md5, so two
// different URLs sharing a basename never collide. Rasterized vectors
// always get a .png extension.
func Filename(sourceURL string, rasterized bool) string {
	base := "image"
	ext := ""
	if u, err := url.Parse(sourceURL); err == nil && u.Path != "" {
		b := path.Base(u.Path)
		ext = path.Ext(b)
		if stem := strings.TrimSuffix(b, ext); stem != "" && stem != "/" && stem != "." {
			base = sanitizeStem(stem)
		}
	}
	if rasterized {
		ext = ".png"
	}
	if ext == "" {
		ext = ".img"
	}

	sum := md5.Sum([]byte(sourceURL))
	return base + "_" + hex.EncodeToString(sum[:])[:8] + ext
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "image"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
