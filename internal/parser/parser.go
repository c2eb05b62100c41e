// Package parser turns uploaded statement documents into normalized
// transactions. Format detection sniffs content, never file extensions.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// Format identifies a supported statement document format.
type Format string

// Supported formats.
const (
	FormatPDF     Format = "pdf"
	FormatOFX     Format = "ofx"
	FormatCSV     Format = "csv"
	FormatUnknown Format = "unknown"
)

// Valid reports whether the format is one of the parseable set.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatOFX, FormatCSV:
		return true
	}
	return false
}

// ParseFormat validates a caller-declared format discriminant. An empty
// string means no declaration and maps to FormatUnknown; anything else
// must name a supported format.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatUnknown, nil
	}
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return FormatUnknown, fmt.Errorf("%w: unknown format %q", common.ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Result is the outcome of parsing one statement document. Diagnostics
// carry non-fatal notes about lines the parser had to skip or filter.
type Result struct {
	Statement    model.StatementInfo
	Bank         string
	Transactions []model.Transaction
	Diagnostics  []string
}

// DetectFormat sniffs the document content to determine its format.
func DetectFormat(content []byte) Format {
	if bytes.HasPrefix(content, []byte("%PDF-")) {
		return FormatPDF
	}

	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	upper := strings.ToUpper(string(head))
	if strings.Contains(upper, "OFXHEADER") || strings.Contains(upper, "<OFX>") {
		return FormatOFX
	}

	if looksLikeCSV(head) {
		return FormatCSV
	}
	return FormatUnknown
}

// looksLikeCSV checks for a consistent delimiter structure in the first
// few lines.
func looksLikeCSV(head []byte) bool {
	lines := strings.Split(string(head), "\n")
	counted := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Count(line, ",") < 2 {
			return false
		}
		counted++
		if counted >= 3 {
			break
		}
	}
	return counted > 0
}

// Parse extracts transactions from a statement document. The declared
// format is used when sniffing is inconclusive; a declaration the content
// contradicts is overridden, with a diagnostic. Every returned
// transaction carries its hash and source line index.
func Parse(ctx context.Context, content []byte, filename string, declared Format) (*Result, error) {
	detected := DetectFormat(content)
	format := detected
	if format == FormatUnknown && declared.Valid() {
		format = declared
	}

	var result *Result
	var err error

	switch format {
	case FormatPDF:
		result, err = parsePDF(ctx, content)
	case FormatOFX:
		result, err = parseOFX(ctx, content)
	case FormatCSV:
		result, err = parseCSV(ctx, content)
	default:
		return nil, fmt.Errorf("%w: cannot determine format of %q", common.ErrUnsupportedFormat, filename)
	}

	if err != nil {
		return nil, err
	}

	if declared.Valid() && detected != FormatUnknown && declared != detected {
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("declared format %q contradicted by content, parsed as %q", declared, detected))
	}

	if len(result.Transactions) == 0 {
		return nil, fmt.Errorf("%w: %q parsed cleanly but contained no transactions", common.ErrNoTransactions, filename)
	}

	for i := range result.Transactions {
		result.Transactions[i].LineIndex = i
		result.Transactions[i].Hash = result.Transactions[i].GenerateHash()
	}

	slog.Info("Parsed statement document",
		"file", filename,
		"format", format,
		"bank", result.Bank,
		"transactions", len(result.Transactions))

	for _, d := range result.Diagnostics {
		slog.Warn("Statement parse diagnostic", "file", filename, "note", d)
	}

	return result, nil
}
