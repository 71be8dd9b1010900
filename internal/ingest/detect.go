package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const (
	// SampleBytes is how much of a file feeds encoding detection.
	SampleBytes = 10 * 1024
	// MinConfidence is the detector confidence below which UTF-8 is assumed.
	MinConfidence = 0.7
	// SniffLines is how many leading lines feed separator and header detection.
	SniffLines = 5
	// HeaderSentinel marks the header row of a pipeline export.
	HeaderSentinel = "Image_name"
)

// FallbackEncodings are tried in order when the chosen encoding cannot decode a file.
var FallbackEncodings = []string{"utf-8", "gbk", "gb2312", "gb18030", "latin1"}

// Separators are the candidate field separators, in tie-break order.
var Separators = []rune{',', ';', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detection is the outcome of encoding detection.
type Detection struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	Detected   string  `json:"detected,omitempty"`
}

// DetectEncoding guesses the character encoding of sample.
// Guesses under MinConfidence fall back to UTF-8; a UTF-8 BOM is always honoured.
func DetectEncoding(sample []byte) Detection {
	if bytes.HasPrefix(sample, utf8BOM) {
		return Detection{Encoding: "utf-8", Confidence: 1, Detected: "utf-8-sig"}
	}
	if len(sample) > SampleBytes {
		sample = sample[:SampleBytes]
	}
	if len(sample) == 0 {
		return Detection{Encoding: "utf-8"}
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil {
		return Detection{Encoding: "utf-8"}
	}
	d := Detection{
		Encoding:   canonicalEncoding(res.Charset),
		Confidence: float64(res.Confidence) / 100,
		Detected:   res.Charset,
	}
	if d.Confidence < MinConfidence {
		d.Encoding = "utf-8"
	}
	return d
}

func canonicalEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "gb-18030":
		return "gb18030"
	case "iso-8859-1":
		return "latin1"
	case "":
		return "utf-8"
	}
	return n
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8", "utf-8-sig", "ascii", "":
		return nil, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "gbk", "gb2312", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// Decode converts data from the named encoding to UTF-8. It fails rather than
// substituting replacement characters, so callers can try the next encoding.
func Decode(data []byte, name string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid utf-8 input")
		}
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(data, utf8.RuneError) {
		return "", fmt.Errorf("decode %s: invalid byte sequence", name)
	}
	return string(out), nil
}

// DetectSeparator picks the separator that splits the most sniffed lines into the
// same number (>1) of fields. Ties prefer the higher field count, then the order of
// Separators. Defaults to ','.
func DetectSeparator(lines []string) rune {
	lines = sniffWindow(lines)
	best, bestLines, bestFields := ',', 0, 1
	for _, sep := range Separators {
		counts := make(map[int]int)
		for _, l := range lines {
			if n := strings.Count(l, string(sep)) + 1; n > 1 {
				counts[n]++
			}
		}
		for fields, agree := range counts {
			if agree > bestLines || (agree == bestLines && fields > bestFields) {
				best, bestLines, bestFields = sep, agree, fields
			}
		}
	}
	return best
}

// DetectHeaderRow returns the index of the header line among the first SniffLines lines.
// The first line containing HeaderSentinel wins; otherwise the first line with more than
// five fields and some content; otherwise 0.
func DetectHeaderRow(lines []string, sep rune) int {
	lines = sniffWindow(lines)
	for i, l := range lines {
		if strings.Contains(strings.ToLower(l), strings.ToLower(HeaderSentinel)) {
			return i
		}
	}
	for i, l := range lines {
		fields := strings.Split(l, string(sep))
		if len(fields) <= 5 {
			continue
		}
		for _, f := range fields {
			if strings.TrimSpace(f) != "" {
				return i
			}
		}
	}
	return 0
}

func sniffWindow(lines []string) []string {
	if len(lines) > SniffLines {
		return lines[:SniffLines]
	}
	return lines
}
