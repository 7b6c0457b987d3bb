package publish

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

// MaxSlugLength is the slug budget in bytes. Slugs are ASCII so bytes and characters agree.
const MaxSlugLength = 60

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace   = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slug derives a URL slug from title: lowercase, only [a-z0-9-], words joined by single dashes,
// at most MaxSlugLength characters cut at a dash boundary. Titles without usable characters get
// "post-" and the first 8 hex digits of the title's SHA-1.
func Slug(title string) string {
	s := strings.ToLower(title)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxSlugLength {
		if s[MaxSlugLength] == '-' {
			s = s[:MaxSlugLength]
		} else if i := strings.LastIndexByte(s[:MaxSlugLength], '-'); i > 0 {
			s = s[:i]
		} else {
			s = s[:MaxSlugLength]
		}
		s = strings.Trim(s, "-")
	}

	if s == "" {
		sum := sha1.Sum([]byte(title))
		return "post-" + hex.EncodeToString(sum[:])[:8]
	}
	return s
}
