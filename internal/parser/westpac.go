package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

// Westpac statement layout. Dates print as DD/MM/YY; debit and credit
// rows share one unsigned "amount balance" shape, so the sign is
// recovered from the running balance: a balance that went down means
// the row was a debit.
var (
	wbcDateRe    = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})\s+(.+)`)
	wbcRowRe     = regexp.MustCompile(`^(.*?)\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`)
	wbcSingleRe  = regexp.MustCompile(`^(.*?)\s+([\d,]+\.\d{2})\s*$`)
	wbcTrailRe   = regexp.MustCompile(`([\d,]+\.\d{2})\s*$`)
	wbcPeriodRe  = regexp.MustCompile(`(\d{1,2}\s+\w+\s+\d{4})\s*-\s*(\d{1,2}\s+\w+\s+\d{4})`)
	wbcBSBRe     = regexp.MustCompile(`^(\d{3}-\d{3})\s+([\d\s]+?)\s*$`)
	wbcNameRe    = regexp.MustCompile(`Account\s+Name\s+(.+)`)
	wbcOpeningRe = regexp.MustCompile(`Opening\s+Balance\s+[+\-]?\s*\$?([\d,]+\.\d{2})`)
	wbcClosingRe = regexp.MustCompile(`Closing\s+Balance\s+[+\-]?\s*\$?([\d,]+\.\d{2})`)
	wbcTableRe   = regexp.MustCompile(`(?i)^DATE\s+TRANSACTION\s+DESCRIPTION\s+DEBIT\s+CREDIT\s+BALANCE`)
	wbcFooterRe  = regexp.MustCompile(`^Westpac\s+Banking\s+Corporation`)
)

// parseWestpacStatement parses a Westpac statement from extracted page
// text.
func parseWestpacStatement(pages []string) (*Result, error) {
	result := &Result{Bank: "westpac"}

	if len(pages) > 0 {
		for _, line := range strings.Split(pages[0], "\n") {
			if m := wbcPeriodRe.FindStringSubmatch(line); m != nil {
				result.Statement.PeriodStart = m[1]
				result.Statement.PeriodEnd = m[2]
			}
			if m := wbcBSBRe.FindStringSubmatch(line); m != nil {
				result.Statement.BSB = m[1]
				result.Statement.AccountNumber = strings.TrimSpace(strings.ReplaceAll(m[2], " ", ""))
			}
			if m := wbcNameRe.FindStringSubmatch(line); m != nil {
				result.Statement.AccountName = strings.TrimSpace(m[1])
			}
			if m := wbcOpeningRe.FindStringSubmatch(line); m != nil {
				if d, err := parseAmount(m[1]); err == nil {
					result.Statement.OpeningBalance = d
				}
			}
			if m := wbcClosingRe.FindStringSubmatch(line); m != nil {
				if d, err := parseAmount(m[1]); err == nil {
					result.Statement.ClosingBalance = d
				}
			}
		}
	}

	var tableLines []string
	for _, pageText := range pages {
		inTable := false
		for _, line := range strings.Split(pageText, "\n") {
			switch {
			case wbcTableRe.MatchString(line):
				inTable = true
			case strings.Contains(line, "CONVENIENCE AT YOUR FINGERTIPS"),
				strings.Contains(line, "TRANSACTION FEE SUMMARY"),
				wbcFooterRe.MatchString(line):
				inTable = false
			case inTable:
				tableLines = append(tableLines, strings.TrimSpace(line))
			}
		}
	}

	var txns []model.Transaction
	prevBalance := result.Statement.OpeningBalance

	for _, line := range tableLines {
		if line == "" {
			continue
		}

		// Balance marker rows reset the running balance instead of
		// producing a transaction.
		if strings.Contains(line, "OPENING BALANCE") {
			if m := wbcTrailRe.FindStringSubmatch(line); m != nil {
				if d, err := parseAmount(m[1]); err == nil {
					prevBalance = d
				}
			}
			continue
		}
		if strings.Contains(line, "CLOSING BALANCE") {
			continue
		}

		m := wbcDateRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, err := westpacDate(m[1], m[2], m[3])
		if err != nil {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("skipped row with unparseable date: %q", line))
			continue
		}
		rest := m[4]

		if rm := wbcRowRe.FindStringSubmatch(rest); rm != nil {
			amount, aerr := parseAmount(rm[2])
			balance, berr := parseAmount(rm[3])
			if aerr == nil && berr == nil {
				if balance.LessThan(prevBalance) {
					amount = amount.Neg()
				}
				txns = append(txns, model.Transaction{
					Date:        date,
					Description: strings.TrimSpace(rm[1]),
					Amount:      amount,
					Balance:     &balance,
				})
				prevBalance = balance
				continue
			}
		}

		// Rows carrying a single trailing figure have no balance column
		// to sign against; the printed amount is taken as-is.
		if sm := wbcSingleRe.FindStringSubmatch(rest); sm != nil {
			if amount, err := parseAmount(sm[2]); err == nil {
				txns = append(txns, model.Transaction{
					Date:        date,
					Description: strings.TrimSpace(sm[1]),
					Amount:      amount,
				})
				prevBalance = amount
				continue
			}
		}

		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("dropped row without amount: %q", line))
	}

	result.Transactions = txns
	return result, nil
}

// westpacDate expands a DD/MM/YY date. Two-digit years below 80 fall in
// the 2000s.
func westpacDate(dayStr, monthStr, yearStr string) (time.Time, error) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	yy, _ := strconv.Atoi(yearStr)

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %s/%s/%s", dayStr, monthStr, yearStr)
	}

	year := 2000 + yy
	if yy >= 80 {
		year = 1900 + yy
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
