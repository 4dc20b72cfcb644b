package agency

import (
	"strings"
	"time"
	"unicode"
)

// createdDateLayouts are the two formats the upstream API emits.
var createdDateLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
}

// NormalizeCreatedDate converts an upstream CreatedDate value to
// YYYY-MM-DD. Returns "" when the value matches neither known format.
func NormalizeCreatedDate(createdDate string) string {
	createdDate = strings.TrimSpace(createdDate)
	if createdDate == "" {
		return ""
	}

	for _, layout := range createdDateLayouts {
		if t, err := time.Parse(layout, createdDate); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return ""
}

// GeneratedFilename builds the deterministic local filename for a
// download: <agency>_<title>_<date>_<id>.<ext> with unsafe runes
// replaced. Empty parts are dropped so partial metadata still yields a
// usable name.
func GeneratedFilename(req DownloadRequest) string {
	parts := make([]string, 0, 4)

	if s := sanitizePart(req.AgencyName); s != "" {
		parts = append(parts, s)
	}
	if s := sanitizePart(req.Title); s != "" {
		parts = append(parts, s)
	}
	if s := NormalizeCreatedDate(req.CreatedDate); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, sanitizePart(req.DocumentID))

	ext := strings.ToLower(strings.TrimPrefix(req.Extension, "."))
	if ext == "" {
		ext = "pdf"
	}

	return strings.Join(parts, "_") + "." + ext
}

// sanitizePart replaces filesystem-hostile runes with underscores and
// collapses repeats.
func sanitizePart(s string) string {
	var b strings.Builder

	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		safe := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.'
		if safe {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}

		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}
