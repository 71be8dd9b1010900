package matcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	leadingDigits = regexp.MustCompile(`^(\d+)`)
	anyDigits     = regexp.MustCompile(`\d+`)
	variantSuffix = []*regexp.Regexp{
		regexp.MustCompile(`_ori\.(jpg|jpeg|png|bmp|tiff?)$`),
		regexp.MustCompile(`_original\.(jpg|jpeg|png|bmp|tiff?)$`),
		regexp.MustCompile(`_processed\.(jpg|jpeg|png|bmp|tiff?)$`),
	}
)

// baseName strips any directory part, accepting both slash styles.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func stem(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// ExtractPrefix returns the numeric identifier of an image filename: the leading digit
// run, else the first digit run of the first "_" segment, else the name without extension.
func ExtractPrefix(name string) string {
	base := baseName(name)
	if m := leadingDigits.FindString(base); m != "" {
		return m
	}
	first, _, _ := strings.Cut(base, "_")
	if m := anyDigits.FindString(first); m != "" {
		return m
	}
	return stem(base)
}

// NormalizeFilename lowercases the basename and drops _ori/_original/_processed
// before an image extension.
func NormalizeFilename(name string) string {
	n := strings.ToLower(baseName(name))
	for _, re := range variantSuffix {
		n = re.ReplaceAllString(n, ".$1")
	}
	return n
}

// Similarity scores two filenames in [0,1].
func Similarity(a, b string) float64 {
	na, nb := NormalizeFilename(a), NormalizeFilename(b)
	if na == nb {
		return 1.0
	}
	if ExtractPrefix(a) == ExtractPrefix(b) {
		return 0.9
	}
	ra, rb := []rune(na), []rune(nb)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	common := 0
	for common < len(ra) && common < len(rb) && ra[common] == rb[common] {
		common++
	}
	return float64(common) / float64(longest)
}
