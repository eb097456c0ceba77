// Package stitch consolidates a run directory's checkpoints into one
// analysis-ready table.
//
// Stitching is the integrity gate of a run: it refuses to produce a
// table unless the set of discovered checkpoint ordinals is exactly
// 1..2^M-1 for the base set recorded in the checkpoints. The result is
// an Arrow record with one row per (configuration, seed), sorted by
// ordinal then seed-plan position.
package stitch

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	acsv "github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/dkoster/causalsweep/internal/checkpoint"
	"github.com/dkoster/causalsweep/internal/combinator"
)

// IncompleteError reports a mismatch between discovered checkpoint
// ordinals and the expected set 1..Expected.
type IncompleteError struct {
	Expected  int
	Missing   []int
	Extra     []int
	Duplicate []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("checkpoint set incomplete: expected ordinals 1..%d, missing %v, extra %v, duplicate %v",
		e.Expected, e.Missing, e.Extra, e.Duplicate)
}

// Schema is the consolidated table layout. Numeric estimate columns are
// nullable; a failed trial renders them as nulls and carries its message
// in the error column.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "comb_ordinal", Type: arrow.PrimitiveTypes.Int64},
	{Name: "config_id", Type: arrow.BinaryTypes.String},
	{Name: "seed", Type: arrow.PrimitiveTypes.Int64},
	{Name: "estimate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "variance", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "lower", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "upper", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "p_value", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "elapsed_seconds", Type: arrow.PrimitiveTypes.Float64},
	{Name: "error", Type: arrow.BinaryTypes.String},
}, nil)

// Table is the consolidated result table.
type Table struct {
	rec arrow.Record
}

// Record exposes the underlying Arrow record.
func (t *Table) Record() arrow.Record {
	return t.rec
}

// NumRows returns the number of (configuration, seed) rows.
func (t *Table) NumRows() int64 {
	return t.rec.NumRows()
}

// Release frees the table's Arrow buffers.
func (t *Table) Release() {
	t.rec.Release()
}

// Stitch reads every checkpoint in dir, verifies completeness, and
// builds the consolidated table. The caller must Release the table.
func Stitch(dir string) (*Table, error) {
	cps, err := checkpoint.ReadAll(dir)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, fmt.Errorf("no checkpoints found in %s", dir)
	}

	expected := combinator.Count(len(cps[0].Params.Components))
	if err := verifyComplete(cps, expected); err != nil {
		return nil, err
	}

	sort.Slice(cps, func(i, j int) bool { return cps[i].Ordinal < cps[j].Ordinal })

	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema)
	defer b.Release()

	ordinals := b.Field(0).(*array.Int64Builder)
	configIDs := b.Field(1).(*array.StringBuilder)
	seeds := b.Field(2).(*array.Int64Builder)
	estimates := b.Field(3).(*array.Float64Builder)
	variances := b.Field(4).(*array.Float64Builder)
	lowers := b.Field(5).(*array.Float64Builder)
	uppers := b.Field(6).(*array.Float64Builder)
	pvalues := b.Field(7).(*array.Float64Builder)
	elapsed := b.Field(8).(*array.Float64Builder)
	errMsgs := b.Field(9).(*array.StringBuilder)

	for _, cp := range cps {
		// Checkpoint results are already in seed-plan order.
		for _, tr := range cp.Results {
			ordinals.Append(int64(cp.Ordinal))
			configIDs.Append(cp.ConfigID)
			seeds.Append(tr.Seed)
			if tr.Estimate != nil {
				estimates.Append(tr.Estimate.Estimate)
				variances.Append(tr.Estimate.Variance)
				lowers.Append(tr.Estimate.Lower)
				uppers.Append(tr.Estimate.Upper)
				pvalues.Append(tr.Estimate.PValue)
			} else {
				estimates.AppendNull()
				variances.AppendNull()
				lowers.AppendNull()
				uppers.AppendNull()
				pvalues.AppendNull()
			}
			elapsed.Append(tr.ElapsedSeconds)
			errMsgs.Append(tr.Error)
		}
	}

	return &Table{rec: b.NewRecord()}, nil
}

// verifyComplete checks the discovered ordinals against 1..expected.
func verifyComplete(cps []checkpoint.Checkpoint, expected int) error {
	seen := make(map[int]int, len(cps))
	var extra []int
	for _, cp := range cps {
		if cp.Ordinal < 1 || cp.Ordinal > expected {
			extra = append(extra, cp.Ordinal)
			continue
		}
		seen[cp.Ordinal]++
	}

	var missing, duplicate []int
	for ord := 1; ord <= expected; ord++ {
		switch {
		case seen[ord] == 0:
			missing = append(missing, ord)
		case seen[ord] > 1:
			duplicate = append(duplicate, ord)
		}
	}

	if len(missing) > 0 || len(extra) > 0 || len(duplicate) > 0 {
		sort.Ints(extra)
		return &IncompleteError{Expected: expected, Missing: missing, Extra: extra, Duplicate: duplicate}
	}
	return nil
}

// WriteCSV writes the table to w with a header row; null numeric cells
// render as NA.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := acsv.NewWriter(w, Schema, acsv.WithHeader(true), acsv.WithNullWriter("NA"))
	if err := cw.Write(t.rec); err != nil {
		return fmt.Errorf("writing consolidated table: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flushing consolidated table: %w", err)
	}
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating or truncating it.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating consolidated file: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
