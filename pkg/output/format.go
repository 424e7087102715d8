// Package output provides utilities for formatting and displaying solver results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/reorder-policy/internal/solver"
	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/format"
)

// WritePretty writes the parameter summary, one line per iteration and a
// closing line with the converged policy.
func WritePretty(w io.Writer, result *solver.Result) error {
	s := result.Summary
	lines := []string{
		fmt.Sprintf("Parameters: %s", result.Params),
		fmt.Sprintf("Derived: annual demand=%s, holding cost=%s, EOQ=Q_0=%s, F(Q_0)=%.6f, z_0=%.6f, R_0=%s, total cost=%s, Q_1=%s, R_1=%s",
			format.Number(s.AnnualDemand, 2), format.Number(s.HoldingCost, 2), format.Number(s.EconomicOrderQuantity, 4),
			s.FillRate, s.SafetyFactor, format.Number(s.ReorderPoint, 4), format.Currency(s.TotalCost),
			format.Number(s.NextOrderQuantity, 4), format.Number(s.NextReorderPoint, 4)),
	}
	for _, state := range result.Trace {
		lines = append(lines, fmt.Sprintf("i=%d\tQ=%.6f\tR=%.6f\tz=%.6f\ttotalCost=%s",
			state.Iteration, state.OrderQuantity, state.ReorderPoint, state.SafetyFactor, format.Currency(state.TotalCost)))
	}

	final := result.Final()
	status := "Converged"
	if !result.Converged {
		status = "Stopped"
	}
	lines = append(lines, fmt.Sprintf("%s after %d iterations (tolerance %g): Q=%.6f R=%.6f z=%.6f total cost=%s | annual demand=%s holding cost=%s fill rate=%.6f EOQ=%s",
		status, final.Iteration, result.Options.Tolerance, final.OrderQuantity, final.ReorderPoint, final.SafetyFactor,
		format.Currency(final.TotalCost), format.Number(s.AnnualDemand, 2), format.Number(s.HoldingCost, 2),
		result.FillRate(), format.Number(s.EconomicOrderQuantity, 4)))

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

var csvHeader = []string{"iteration", "phase", "Q", "R", "z", "totalCost"}

// WriteCSV writes the trace in comma-separated value format.
func WriteCSV(w io.Writer, result *solver.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, state := range result.Trace {
		record := []string{
			strconv.Itoa(state.Iteration),
			state.Phase.String(),
			strconv.FormatFloat(state.OrderQuantity, 'f', -1, 64),
			strconv.FormatFloat(state.ReorderPoint, 'f', -1, 64),
			strconv.FormatFloat(state.SafetyFactor, 'f', -1, 64),
			strconv.FormatFloat(state.TotalCost, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CsvString returns the CSV trace as a string.
func CsvString(result *solver.Result) string {
	var b strings.Builder
	_ = WriteCSV(&b, result)
	return b.String()
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, result *solver.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// Write dispatches on the output format, defaulting to pretty.
func Write(w io.Writer, outputFormat string, result *solver.Result) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return WriteCSV(w, result)
	case constants.OutputFormatJSON:
		return WriteJSON(w, result)
	default:
		return WritePretty(w, result)
	}
}
