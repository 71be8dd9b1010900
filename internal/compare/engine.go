// Package compare runs the full comparison of two pipeline exports: read, match,
// analyze, classify and record.
package compare

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/imgdiff/internal/analysis"
	"github.com/KaramelBytes/imgdiff/internal/classify"
	"github.com/KaramelBytes/imgdiff/internal/history"
	"github.com/KaramelBytes/imgdiff/internal/ingest"
	"github.com/KaramelBytes/imgdiff/internal/logging"
	"github.com/KaramelBytes/imgdiff/internal/matcher"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

// ErrNoFields is returned when no selected field can be analyzed.
var ErrNoFields = errors.New("no analyzable fields")

// ErrPrimaryField is returned when the first selected field, which drives
// classification, cannot be analyzed.
var ErrPrimaryField = errors.New("primary field not analyzable")

// Options selects the inputs and knobs of one comparison.
type Options struct {
	FileA, FileB string
	// Fields to analyze; the first is the primary field. Empty selects every
	// column numeric in both tables.
	Fields          []string
	MatchColumn     string
	Similarity      float64
	ConfidenceLevel float64
	Ingest          ingest.Options
	// Canonicalize renames columns to their display names before matching.
	Canonicalize bool
	BaseFields   []string
	// MatchOnly stops after matching.
	MatchOnly bool
}

// TableInfo describes how one input was read.
type TableInfo struct {
	Name      string                `json:"name"`
	Path      string                `json:"path"`
	Encoding  string                `json:"encoding"`
	Separator string                `json:"separator"`
	HeaderRow int                   `json:"header_row"`
	Rows      int                   `json:"rows"`
	Columns   int                   `json:"columns"`
	Warnings  []string              `json:"warnings,omitempty"`
	Key       ingest.KeyReport      `json:"key"`
	Mapping   *ingest.ColumnMapping `json:"mapping,omitempty"`
}

// Outcome is everything one comparison produced.
type Outcome struct {
	RunID          string            `json:"run_id"`
	CreatedAt      time.Time         `json:"created_at"`
	A              TableInfo         `json:"file_a"`
	B              TableInfo         `json:"file_b"`
	Match          *matcher.Result   `json:"match"`
	Fields         FieldIssues       `json:"fields"`
	Analysis       *analysis.Report  `json:"analysis,omitempty"`
	Classification *classify.Result  `json:"classification,omitempty"`
	Summary        *classify.Summary `json:"summary,omitempty"`
	HistoryErr     string            `json:"history_error,omitempty"`
}

// Engine wires the pipeline stages together.
type Engine struct {
	store   *thresholds.Store
	history *history.Store
	reader  *ingest.Reader
	log     zerolog.Logger
}

// NewEngine returns an Engine reading thresholds from store. hist may be nil to
// skip run recording.
func NewEngine(store *thresholds.Store, hist *history.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:   store,
		history: hist,
		reader:  ingest.NewReader(logging.Component(logger, "ingest")),
		log:     logger,
	}
}

// Load reads and optionally canonicalizes one input.
func (e *Engine) Load(path string, opt Options) (*ingest.Table, TableInfo, error) {
	t, err := e.reader.Read(path, opt.Ingest)
	if err != nil {
		return nil, TableInfo{}, err
	}
	info := TableInfo{
		Name:      t.Name,
		Path:      path,
		Encoding:  t.Encoding,
		Separator: string(t.Separator),
		HeaderRow: t.HeaderRow,
		Warnings:  append([]string(nil), t.Warnings...),
	}
	if opt.Canonicalize {
		canon := ingest.NewCanonicalizer(opt.BaseFields, logging.Component(e.log, "columns"))
		ct, m, err := canon.Canonicalize(t)
		if err != nil {
			return nil, TableInfo{}, fmt.Errorf("canonicalize %s: %w", t.Name, err)
		}
		t = ct
		info.Mapping = &m
	}
	info.Rows = t.Len()
	info.Columns = len(t.Columns())
	info.Key, _ = ingest.ValidateMatchColumn(t, matchColumn(opt))
	for _, w := range info.Key.Warnings {
		e.log.Warn().Str("file", t.Name).Msg(w)
	}
	return t, info, nil
}

// Run executes the comparison described by opt.
func (e *Engine) Run(ctx context.Context, opt Options) (*Outcome, error) {
	a, infoA, err := e.Load(opt.FileA, opt)
	if err != nil {
		return nil, err
	}
	b, infoB, err := e.Load(opt.FileB, opt)
	if err != nil {
		return nil, err
	}
	return e.Compare(ctx, a, b, infoA, infoB, opt)
}

// Compare runs matching and analysis on already loaded tables.
func (e *Engine) Compare(ctx context.Context, a, b *ingest.Table, infoA, infoB TableInfo, opt Options) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString(), CreatedAt: time.Now().UTC(), A: infoA, B: infoB}
	log := e.log.With().Str("run_id", out.RunID).Logger()

	m := matcher.New(matchColumn(opt), opt.Similarity, logging.Component(log, "matcher"))
	res, err := m.Match(a, b)
	if err != nil {
		return nil, err
	}
	out.Match = res
	if opt.MatchOnly {
		return out, nil
	}

	fields := opt.Fields
	if len(fields) == 0 {
		fields = NumericColumns(a, b, m.Column)
	}
	out.Fields = ValidateFields(a, b, fields)
	for _, f := range out.Fields.MissingInA {
		log.Warn().Str("field", f).Str("file", a.Name).Msg("field missing")
	}
	for _, f := range out.Fields.MissingInB {
		log.Warn().Str("field", f).Str("file", b.Name).Msg("field missing")
	}
	for _, f := range out.Fields.NonNumeric {
		log.Warn().Str("field", f).Msg("field has no numeric values")
	}
	if len(out.Fields.Valid) == 0 {
		return out, fmt.Errorf("%w: selected %s", ErrNoFields, strings.Join(fields, ", "))
	}
	if primary := fields[0]; out.Fields.Valid[0] != primary {
		return out, fmt.Errorf("%w: %s", ErrPrimaryField, primary)
	}

	an := analysis.NewAnalyzer(e.store, logging.Component(log, "analysis"))
	defer an.Close()
	if opt.ConfidenceLevel > 0 && opt.ConfidenceLevel < 1 {
		an.ConfidenceLevel = opt.ConfidenceLevel
	}
	out.Analysis = an.Analyze(res.Pairs, out.Fields.Valid)

	cl := classify.NewClassifier(e.store, out.Fields.Valid, logging.Component(log, "classify"))
	defer cl.Close()
	out.Classification = cl.Classify(res.Pairs)
	sum := out.Classification.Summary()
	out.Summary = &sum

	if e.history != nil {
		if err := e.history.Record(ctx, out.HistoryRun()); err != nil {
			out.HistoryErr = err.Error()
			log.Warn().Err(err).Msg("failed to record run")
		}
	}
	log.Info().Int("pairs", len(res.Pairs)).Float64("match_rate", res.MatchRate).
		Strs("fields", out.Fields.Valid).Msg("comparison finished")
	return out, nil
}

// HistoryRun converts the outcome to a history record.
func (o *Outcome) HistoryRun() *history.Run {
	run := &history.Run{
		ID:        o.RunID,
		CreatedAt: o.CreatedAt,
		FileA:     o.A.Path,
		FileB:     o.B.Path,
	}
	if o.Match != nil {
		run.MatchColumn = o.Match.Column
		run.Threshold = o.Match.Threshold
		run.TotalA = o.Match.TotalA
		run.TotalB = o.Match.TotalB
		run.Matched = len(o.Match.Pairs)
		run.MatchRate = o.Match.MatchRate
	}
	run.Fields = append([]string(nil), o.Fields.Valid...)
	if o.Classification != nil {
		run.Primary = o.Classification.PrimaryField
		run.Skipped = len(o.Classification.Skipped)
		run.Buckets = make(map[string]int)
		for b, n := range o.Classification.Counts() {
			run.Buckets[string(b)] = n
		}
	}
	return run
}

// WriteCSV writes the merged pair table for the analyzed fields.
func (o *Outcome) WriteCSV(w io.Writer) error {
	if o.Match == nil {
		return errors.New("no match result")
	}
	header, rows := o.Match.Merged(o.Fields.Valid)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func matchColumn(opt Options) string {
	if opt.MatchColumn == "" {
		return matcher.DefaultColumn
	}
	return opt.MatchColumn
}
