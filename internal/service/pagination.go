package service

import (
	"strings"

	"github.com/google/uuid"
)

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

// slugFor builds a url-safe slug with a short random suffix.
func slugFor(title string) string {
	base := strings.ToLower(strings.TrimSpace(title))

	slug := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			slug = append(slug, r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if len(slug) == 0 || slug[len(slug)-1] == '-' {
				continue
			}
			slug = append(slug, '-')
		}
	}
	trimmed := strings.Trim(string(slug), "-")
	if len(trimmed) > 200 {
		trimmed = strings.TrimRight(trimmed[:200], "-")
	}
	if trimmed == "" {
		trimmed = "announcement"
	}
	return trimmed + "-" + uuid.NewString()[:8]
}
