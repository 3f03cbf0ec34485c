package music

import (
	"regexp"
	"strings"

	"github.com/gosimple/unidecode"
)

var (
	punctuationRe   = regexp.MustCompile(`[^\w\s]`)
	multipleSpaceRe = regexp.MustCompile(`\s+`)
)

// SearchKey folds the given parts into one lowercase ASCII string with
// punctuation removed, so "Björk" matches "bjork" and "AC/DC" matches "ac dc".
func SearchKey(parts ...string) string {
	s := strings.Join(parts, " ")
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = multipleSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
