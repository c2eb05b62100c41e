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

// ANZ statement layout. Dates print as "DD MON" uppercase; the empty
// column in a debit or credit row is rendered as the literal word "blank"
// by the extractor, which is what distinguishes the two.
var (
	anzDateRe   = regexp.MustCompile(`^(\d{1,2})\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\s+(.+)`)
	anzDebitRe  = regexp.MustCompile(`^(.*?)\s+([\d,]+\.\d{2})\s+blank\s+([\d,]+\.\d{2})$`)
	anzCreditRe = regexp.MustCompile(`^(.*?)\s+blank\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})$`)

	anzPeriodRe  = regexp.MustCompile(`(\d{1,2}\s+\w+\s+\d{4})\s+TO\s+(\d{1,2}\s+\w+\s+\d{4})`)
	anzBSBRe     = regexp.MustCompile(`(?:BSB\)?)\s*(\d{3}-\d{3})`)
	anzAccountRe = regexp.MustCompile(`Account\s+number\s+([\d-]+)`)
	anzNameRe    = regexp.MustCompile(`Account\s+name\(?s?\)?\s+(.+)`)
	anzOpeningRe = regexp.MustCompile(`Opening\s+balance\s+[+\-]?\$?([\d,]+\.\d{2})`)
	anzClosingRe = regexp.MustCompile(`Closing\s+balance\s+[+\-]?\$?([\d,]+\.\d{2})`)

	anzTableRe   = regexp.MustCompile(`(?i)Date\s+Transaction\s+description\s+Debits`)
	anzYearRe    = regexp.MustCompile(`^(\d{4})\s+blank\s+blank$`)
	anzPageRe    = regexp.MustCompile(`Page\s+\d+\s+of\s+\d+`)
	anzFourDigRe = regexp.MustCompile(`(\d{4})`)
)

type anzPending struct {
	date        time.Time
	description string
	amount      decimal.Decimal
	hasAmount   bool
}

// parseANZStatement parses an ANZ statement from extracted page text.
func parseANZStatement(pages []string) (*Result, error) {
	result := &Result{Bank: "anz"}
	year := strconv.Itoa(time.Now().Year())

	if len(pages) > 0 {
		for _, line := range strings.Split(pages[0], "\n") {
			if m := anzPeriodRe.FindStringSubmatch(line); m != nil {
				result.Statement.PeriodStart = m[1]
				result.Statement.PeriodEnd = m[2]
				if years := anzFourDigRe.FindAllString(line, -1); len(years) > 0 {
					year = years[len(years)-1]
				}
			}
			if m := anzBSBRe.FindStringSubmatch(line); m != nil {
				result.Statement.BSB = m[1]
			}
			if m := anzAccountRe.FindStringSubmatch(line); m != nil {
				result.Statement.AccountNumber = m[1]
			}
			if m := anzNameRe.FindStringSubmatch(line); m != nil {
				result.Statement.AccountName = strings.TrimSpace(m[1])
			}
			if m := anzOpeningRe.FindStringSubmatch(line); m != nil {
				if d, err := parseAmount(m[1]); err == nil {
					result.Statement.OpeningBalance = d
				}
			}
			if m := anzClosingRe.FindStringSubmatch(line); m != nil {
				if d, err := parseAmount(m[1]); err == nil {
					result.Statement.ClosingBalance = d
				}
			}
		}
	}

	var tableLines []string
	for pageIdx, pageText := range pages {
		inTable := false
		for _, line := range strings.Split(pageText, "\n") {
			switch {
			case anzTableRe.MatchString(line):
				inTable = true
			case strings.Contains(line, "TOTALS AT END OF PAGE"),
				strings.Contains(line, "TOTALS AT END OF PERIOD"),
				strings.Contains(line, "Transaction details"),
				strings.Contains(line, "Please retain"):
				// Non-transaction table furniture.
			case strings.Contains(line, "Account number") && pageIdx > 0:
			case anzPageRe.MatchString(line),
				strings.Contains(line, "ANZ ONE STATEMENT"):
				inTable = false
			case inTable:
				tableLines = append(tableLines, strings.TrimSpace(line))
			}
		}
	}

	var txns []model.Transaction
	var current *anzPending

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
		// Year marker rows apply to every row until the next marker.
		if m := anzYearRe.FindStringSubmatch(line); m != nil {
			flush()
			year = m[1]
			continue
		}
		if strings.HasPrefix(line, "EFFECTIVE DATE") ||
			strings.Contains(line, "BALANCE BROUGHT FORWARD") {
			continue
		}

		if m := anzDateRe.FindStringSubmatch(line); m != nil {
			day, _ := strconv.Atoi(m[1])
			date, err := dayMonthDate(day, m[2], year)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics,
					fmt.Sprintf("skipped row with unparseable date: %q", line))
				continue
			}
			rest := m[3]

			if amount, desc, ok := anzAmountRow(rest); ok {
				flush()
				txns = append(txns, model.Transaction{
					Date:        date,
					Description: desc,
					Amount:      amount,
				})
				continue
			}

			flush()
			current = &anzPending{date: date, description: strings.TrimSpace(rest)}
			continue
		}

		if current != nil {
			if amount, desc, ok := anzAmountRow(line); ok {
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

// anzAmountRow matches debit and credit rows; debits come back negative.
func anzAmountRow(line string) (decimal.Decimal, string, bool) {
	if m := anzDebitRe.FindStringSubmatch(line); m != nil {
		if d, err := parseAmount(m[2]); err == nil {
			return d.Neg(), strings.TrimSpace(m[1]), true
		}
	}
	if m := anzCreditRe.FindStringSubmatch(line); m != nil {
		if d, err := parseAmount(m[2]); err == nil {
			return d, strings.TrimSpace(m[1]), true
		}
	}
	return decimal.Zero, "", false
}
