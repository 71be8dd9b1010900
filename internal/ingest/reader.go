package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultMissingTokens are the cell contents read as missing values.
var DefaultMissingTokens = []string{"", "NULL", "null", "NaN", "nan"}

// Options controls how a file is read. Zero values mean auto-detect.
type Options struct {
	// Encoding overrides detection when non-empty.
	Encoding string
	// Separator overrides detection when non-zero.
	Separator rune
	// HeaderRow overrides detection when >= 0; -1 means auto-detect.
	HeaderRow int
	// MissingTokens replaces DefaultMissingTokens when non-nil.
	MissingTokens []string
}

// DefaultOptions auto-detects everything.
func DefaultOptions() Options {
	return Options{HeaderRow: -1}
}

// Reader loads delimited files into Tables.
type Reader struct {
	log       zerolog.Logger
	fallbacks []string
}

// NewReader returns a Reader that logs detection decisions to logger.
func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{log: logger, fallbacks: FallbackEncodings}
}

// Read loads path into a Table.
func (r *Reader) Read(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &IngestError{Op: "read", Path: path, Err: ErrNotFound}
		}
		return nil, &IngestError{Op: "read", Path: path, Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &IngestError{Op: "read", Path: path, Err: ErrEmptyFile}
	}

	enc := opt.Encoding
	if enc == "" {
		det := DetectEncoding(data)
		enc = det.Encoding
		r.log.Debug().Str("file", path).Str("detected", det.Detected).
			Float64("confidence", det.Confidence).Str("encoding", enc).Msg("encoding detected")
	}
	text, used, err := r.decode(data, enc)
	if err != nil {
		return nil, &IngestError{Op: "decode", Path: path, Err: err}
	}

	lines := sniffLines(text)
	if len(lines) == 0 {
		return nil, &IngestError{Op: "parse", Path: path, Err: ErrEmptyFile}
	}
	sep := opt.Separator
	if sep == 0 {
		sep = DetectSeparator(lines)
	}
	headerRow := opt.HeaderRow
	if headerRow < 0 {
		headerRow = DetectHeaderRow(lines, sep)
	}

	t, err := parse(text, sep, headerRow, missingSet(opt.MissingTokens))
	if err != nil {
		return nil, &IngestError{Op: "parse", Path: path, Err: err}
	}
	t.Name = filepath.Base(path)
	t.Encoding = used
	t.Separator = sep
	t.HeaderRow = headerRow
	r.log.Info().Str("file", t.Name).Int("rows", t.Len()).Int("columns", len(t.Columns())).
		Str("encoding", used).Str("separator", strconv.QuoteRune(sep)).Int("header_row", headerRow).
		Msg("table loaded")
	return t, nil
}

func (r *Reader) decode(data []byte, preferred string) (string, string, error) {
	text, err := Decode(data, preferred)
	if err == nil {
		return text, preferred, nil
	}
	r.log.Warn().Err(err).Str("encoding", preferred).Msg("decode failed, trying fallbacks")
	for _, enc := range r.fallbacks {
		if strings.EqualFold(enc, preferred) {
			continue
		}
		if text, err := Decode(data, enc); err == nil {
			r.log.Info().Str("encoding", enc).Msg("decoded with fallback encoding")
			return text, enc, nil
		}
	}
	return "", "", fmt.Errorf("%w (tried %s and %s)", ErrEncodingExhausted, preferred, strings.Join(r.fallbacks, ", "))
}

// sniffLines returns the first non-empty lines of text. Only lines that are empty
// once "\r" is dropped are skipped, as encoding/csv does, so indices line up with
// records. Whitespace-only lines count.
func sniffLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r")
		if l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == SniffLines {
			break
		}
	}
	return out
}

func missingSet(tokens []string) map[string]struct{} {
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func parse(text string, sep rune, headerRow int, missing map[string]struct{}) (*Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var header []string
	var records [][]Value
	var warnings []string
	truncated := 0
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if i < headerRow {
			continue
		}
		if i == headerRow {
			header = headerNames(rec)
			continue
		}
		if len(rec) > len(header) {
			truncated++
			rec = rec[:len(header)]
		}
		row := make([]Value, len(header))
		for j, cell := range rec {
			row[j] = parseCell(cell, missing)
		}
		records = append(records, row)
	}
	if header == nil {
		return nil, ErrEmptyFile
	}
	if truncated > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows had more fields than the header; extra fields dropped", truncated))
	}
	t, err := NewTable("", header, records)
	if err != nil {
		return nil, err
	}
	t.Warnings = warnings
	return t, nil
}

// headerNames trims header cells, names blank ones "Unnamed: <i>" and suffixes
// repeated names with ".1", ".2", ... so every column name is unique.
func headerNames(rec []string) []string {
	out := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))
	for i, h := range rec {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = fmt.Sprintf("%s.%d", base, n)
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func parseCell(cell string, missing map[string]struct{}) Value {
	s := strings.TrimSpace(cell)
	if _, ok := missing[s]; ok {
		return Missing()
	}
	if f, ok := parseFloat(s); ok {
		return Value{kind: KindNumber, num: f, text: s}
	}
	return TextValue(s)
}
