package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

// Commonwealth Bank statement layout. Dates print as "DD Mon" with the
// year carried in the statement period; debit rows place the amount in
// the debit column ahead of a "$" filler, credit rows prefix the amount
// with "$" directly.
var (
	cbaDateRe    = regexp.MustCompile(`^(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(.+)`)
	cbaOpeningRe = regexp.MustCompile(`^(\d{1,2}\s+\w+)\s+\d{4}\s+OPENING\s+BALANCE\s+\$([\d,]+\.\d{2})\s*(?:CR|DR)?$`)
	cbaClosingRe = regexp.MustCompile(`^(\d{1,2}\s+\w+)\s+\d{4}\s+CLOSING\s+BALANCE\s+\$([\d,]+\.\d{2})\s*(?:CR|DR)?$`)
	cbaDebitRe   = regexp.MustCompile(`^(.*?)\s+([\d,]+\.\d{2})\s+\$\s+\$([\d,]+\.\d{2})\s*(?:CR|DR)?$`)
	cbaCreditRe  = regexp.MustCompile(`^(.*?)\s+\$([\d,]+\.\d{2})\s+\$([\d,]+\.\d{2})\s*(?:CR|DR)?$`)

	cbaAccountRe  = regexp.MustCompile(`Account\s+Number\s+(\d{2}\s*\d{4})\s+(\d+)`)
	cbaPeriodRe   = regexp.MustCompile(`Period\s+(\d{1,2}\s+\w+\s+\d{4})\s*-\s*(\d{1,2}\s+\w+\s+\d{4})`)
	cbaHdrCloseRe = regexp.MustCompile(`Closing\s+Balance\s+\$([\d,]+\.\d{2})\s*(?:CR|DR)?`)
	cbaNameRe     = regexp.MustCompile(`Name:\s+(.+)`)
	cbaTableRe    = regexp.MustCompile(`Date\s+Transaction\s+Debit\s+Credit\s+Balance`)
	cbaTotalsRe   = regexp.MustCompile(`Opening\s+balance\s+-\s+Total\s+debits`)
	cbaSummaryRe  = regexp.MustCompile(`\$[\d,]+\.\d{2}\s+CR\s+\$[\d,]+\.\d{2}`)
	cbaYearRe     = regexp.MustCompile(`(\d{4})`)
)

// cbaPending is a transaction under construction while its amount row has
// not yet been seen.
type cbaPending struct {
	date        time.Time
	description string
	amount      decimal.Decimal
	hasAmount   bool
}

// parseCBAStatement parses a Commonwealth Bank statement from extracted
// page text. Each source line is visited once; continuation rows join the
// open transaction rather than triggering a re-scan.
func parseCBAStatement(pages []string) (*Result, error) {
	result := &Result{Bank: "cba"}
	year := strconv.Itoa(time.Now().Year())

	var tableLines []string
	headerParsed := false

	for _, pageText := range pages {
		lines := strings.Split(pageText, "\n")

		if !headerParsed {
			for _, line := range lines {
				if m := cbaAccountRe.FindStringSubmatch(line); m != nil {
					bsb := strings.ReplaceAll(m[1], " ", "")
					if len(bsb) == 6 {
						bsb = bsb[:3] + "-" + bsb[3:]
					}
					result.Statement.BSB = bsb
					result.Statement.AccountNumber = m[2]
				}
				if m := cbaPeriodRe.FindStringSubmatch(line); m != nil {
					result.Statement.PeriodStart = m[1]
					result.Statement.PeriodEnd = m[2]
					if y := cbaYearRe.FindString(line); y != "" {
						year = y
					}
				}
				if m := cbaHdrCloseRe.FindStringSubmatch(line); m != nil {
					if d, err := parseAmount(m[1]); err == nil {
						result.Statement.ClosingBalance = d
					}
				}
				if m := cbaNameRe.FindStringSubmatch(line); m != nil {
					result.Statement.AccountName = strings.TrimSpace(m[1])
				}
			}
			headerParsed = true
		}

		inTable := false
		for _, line := range lines {
			switch {
			case cbaTableRe.MatchString(line):
				inTable = true
			case cbaTotalsRe.MatchString(line), cbaSummaryRe.MatchString(line):
				inTable = false
			case inTable:
				tableLines = append(tableLines, strings.TrimSpace(line))
			}
		}
	}

	var txns []model.Transaction
	var current *cbaPending

	flush := func() {
		if current == nil {
			return
		}
		if current.hasAmount {
			txns = append(txns, model.Transaction{
				Date:        current.date,
				Description: current.description,
				Amount:      current.amount,
			})
		} else {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("dropped row without amount: %q", current.description))
		}
		current = nil
	}

	for _, line := range tableLines {
		if line == "" {
			continue
		}

		if m := cbaOpeningRe.FindStringSubmatch(line); m != nil {
			if d, err := parseAmount(m[2]); err == nil {
				result.Statement.OpeningBalance = d
			}
			continue
		}
		if m := cbaClosingRe.FindStringSubmatch(line); m != nil {
			if d, err := parseAmount(m[2]); err == nil {
				result.Statement.ClosingBalance = d
			}
			continue
		}

		if m := cbaDateRe.FindStringSubmatch(line); m != nil {
			day, _ := strconv.Atoi(m[1])
			date, err := dayMonthDate(day, m[2], year)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics,
					fmt.Sprintf("skipped row with unparseable date: %q", line))
				continue
			}
			rest := m[3]

			if amount, desc, ok := cbaAmountRow(rest); ok {
				if current != nil && !current.hasAmount {
					// Amount row completing a wrapped transaction that
					// happens to start with a date fragment.
					if desc != "" {
						current.description += " " + desc
					}
					current.amount = amount
					current.hasAmount = true
					flush()
				} else {
					flush()
					txns = append(txns, model.Transaction{
						Date:        date,
						Description: desc,
						Amount:      amount,
					})
				}
				continue
			}

			flush()
			current = &cbaPending{date: date, description: strings.TrimSpace(rest)}
			continue
		}

		if current != nil {
			if amount, desc, ok := cbaAmountRow(line); ok {
				if desc != "" {
					current.description += " " + desc
				}
				current.amount = amount
				current.hasAmount = true
				flush()
			} else {
				current.description += " " + strings.TrimSpace(line)
			}
		}
	}
	flush()

	result.Transactions = txns
	return result, nil
}

// cbaAmountRow matches the debit and credit column layouts. Debits come
// back negative.
func cbaAmountRow(line string) (decimal.Decimal, string, bool) {
	if m := cbaDebitRe.FindStringSubmatch(line); m != nil {
		if d, err := parseAmount(m[2]); err == nil {
			return d.Neg(), strings.TrimSpace(m[1]), true
		}
	}
	if m := cbaCreditRe.FindStringSubmatch(line); m != nil {
		if d, err := parseAmount(m[2]); err == nil {
			return d, strings.TrimSpace(m[1]), true
		}
	}
	return decimal.Zero, "", false
}
