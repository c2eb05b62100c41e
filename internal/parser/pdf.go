package parser

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/faceless-truth/mcs-platform/internal/common"
)

// parsePDF extracts page text and dispatches to the bank-specific line
// parser.
func parsePDF(ctx context.Context, content []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := extractPDFText(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnsupportedFormat, err)
	}

	bank := detectBank(pages)
	switch bank {
	case "cba":
		return parseCBAStatement(pages)
	case "westpac":
		return parseWestpacStatement(pages)
	case "anz":
		return parseANZStatement(pages)
	default:
		return nil, fmt.Errorf("%w: unsupported bank statement layout (detected %q)", common.ErrUnsupportedFormat, bank)
	}
}

// detectBank identifies the issuing bank from first-page text. Most
// specific markers are checked first.
func detectBank(pages []string) string {
	if len(pages) == 0 {
		return "unknown"
	}
	text := strings.ToLower(pages[0])

	if strings.Contains(text, "commonwealth bank") || strings.Contains(text, "commbank") {
		return "cba"
	}
	if strings.Contains(text, "westpac") {
		return "westpac"
	}
	if strings.Contains(text, "anz") {
		return "anz"
	}
	return "unknown"
}

// extractPDFText returns the text of every page, one string per page with
// newline-separated rows. Row extraction is tried first because the bank
// line parsers depend on column order within a row; coordinate
// reconstruction is the fallback for PDFs where the library loses row
// grouping.
func extractPDFText(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction crashed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages = extractByRow(reader, numPages)
	if readableText(pages) {
		return pages, nil
	}

	pages = extractByContent(reader, numPages)
	if readableText(pages) {
		return pages, nil
	}

	return nil, fmt.Errorf("no readable text could be extracted; the document may be image-based or scanned")
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent reconstructs rows from raw text coordinates: group by
// rounded Y, sort rows top-down, sort items left-to-right.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		type textItem struct {
			s string
			x float64
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{s: t.S, x: t.X})
		}

		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})

			var b strings.Builder
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					b.WriteString("  ")
				}
				b.WriteString(item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(b.String())
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// readableText requires enough text and a mostly-ASCII character mix to
// rule out garbage from identity-encoded fonts.
func readableText(pages []string) bool {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 128 {
				readable++
			}
		}
	}
	if total < 50 {
		return false
	}
	return float64(readable)/float64(total) > 0.6
}
