// Package ztable reads, writes and generates standard normal reference
// tables with one (Z, F(Z), L(Z)) row per line.
package ztable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/reorder-policy/pkg/mathutil"
	"github.com/iwvelando/reorder-policy/pkg/normal"
	"github.com/iwvelando/reorder-policy/pkg/policy"
)

// MaxRows bounds the size of a generated table.
const MaxRows = 1_000_000

// Header is written as the first line of generated tables.
const Header = "# Z\tF(Z)\tL(Z)"

var (
	// ErrEmptyTable indicates a table without data rows.
	ErrEmptyTable = errors.New("ztable: table has no records")
	// ErrMalformedRow indicates a data row that is not three floats.
	ErrMalformedRow = errors.New("ztable: malformed row")
)

// Record is one table row.
type Record struct {
	Z float64 `json:"z"`
	F float64 `json:"f"`
	L float64 `json:"l"`
}

func (r Record) String() string {
	return fmt.Sprintf("Record{Z=%g, F=%g, L=%g}", r.Z, r.F, r.L)
}

// ParseRecord parses a whitespace-separated row.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedRow, len(fields))
	}
	var values [3]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: field %d %q: %v", ErrMalformedRow, i+1, field, err)
		}
		values[i] = v
	}
	return Record{Z: values[0], F: values[1], L: values[2]}, nil
}

// Parse reads a table. The first line is a header and is skipped, as are
// blank lines.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	return records, nil
}

// Nearest returns the record whose F is closest to f. Ties go to the earliest
// record.
func Nearest(records []Record, f float64) (Record, error) {
	if len(records) == 0 {
		return Record{}, ErrEmptyTable
	}
	best := records[0]
	bestDist := math.Abs(best.F - f)
	for _, rec := range records[1:] {
		if d := math.Abs(rec.F - f); d < bestDist {
			best, bestDist = rec, d
		}
	}
	return best, nil
}

// Generate builds a table for z from min to max inclusive in the given step.
func Generate(min, max, step float64) ([]Record, error) {
	if step <= 0 || !mathutil.IsFinite(step) {
		return nil, fmt.Errorf("ztable: step must be positive and finite, got %v", step)
	}
	if !mathutil.IsFinite(min, max) {
		return nil, fmt.Errorf("ztable: bounds must be finite, got [%v, %v]", min, max)
	}
	if min > max {
		return nil, fmt.Errorf("ztable: min %v is greater than max %v", min, max)
	}
	rows := math.Floor((max-min)/step+1e-9) + 1
	if rows > MaxRows {
		return nil, fmt.Errorf("ztable: %v rows exceeds limit of %d", rows, MaxRows)
	}
	n := int(rows)
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		z := mathutil.RoundTo(min+float64(i)*step, 10)
		if z == 0 {
			z = 0 // drop the sign of -0
		}
		records = append(records, Record{Z: z, F: normal.CDF(z), L: policy.StandardLoss(z)})
	}
	return records, nil
}

// Write emits the header and one tab-separated row per record.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, rec := range records {
		z := strconv.FormatFloat(rec.Z, 'f', -1, 64)
		if _, err := fmt.Fprintf(bw, "%s\t%.6f\t%.6f\n", z, rec.F, rec.L); err != nil {
			return err
		}
	}
	return bw.Flush()
}
