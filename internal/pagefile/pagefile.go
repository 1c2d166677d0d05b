// Package pagefile builds collision-resistant file names for stored page
// images and their thumbnails. A retry never overwrites an existing file
// because every generated name embeds a fresh unique identifier.
package pagefile

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// New returns a unique file name for a page image derived from the original
// upload name: "<uuid>_<sanitized-base><ext>". ext overrides the original
// extension when non-empty (e.g. rasterized PDF pages become .png).
func New(originalName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = Sanitize(base)
	if base == "" {
		base = "page"
	}
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return uuid.New().String() + "_" + base + ext
}

// ThumbnailName derives the thumbnail file name for a stored page file.
func ThumbnailName(pageFileName string) string {
	base := strings.TrimSuffix(pageFileName, filepath.Ext(pageFileName))
	return base + "_thumb.jpg"
}

// Sanitize strips path separators and characters outside [a-zA-Z0-9._-],
// replacing runs of them with a single underscore.
func Sanitize(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
