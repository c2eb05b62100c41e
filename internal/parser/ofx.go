package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

var (
	ofxSeverityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	ofxTagFixRe   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in exported OFX files:
// leading whitespace before the header, mixed-case SEVERITY values, and
// SGML-style tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	content = ofxSeverityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	content = ofxTagFixRe.ReplaceAllString(content, "$1>")

	return content
}

// parseOFX parses an OFX/QFX export. OFX amounts are already signed with
// debits negative, matching our convention directly.
func parseOFX(ctx context.Context, content []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	processed := preprocessOFX(string(content))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processed))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	result := &Result{Bank: "ofx"}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if result.Statement.AccountNumber == "" {
				result.Statement.AccountNumber = string(stmt.BankAcctFrom.AcctID)
				result.Statement.BSB = string(stmt.BankAcctFrom.BankID)
			}
			if closing, err := ratToDecimal(&stmt.BalAmt.Rat); err == nil {
				result.Statement.ClosingBalance = closing
			}
			if stmt.BankTranList != nil {
				result.Statement.PeriodStart = stmt.BankTranList.DtStart.Time.Format("2 Jan 2006")
				result.Statement.PeriodEnd = stmt.BankTranList.DtEnd.Time.Format("2 Jan 2006")
				result.Transactions = append(result.Transactions, convertOFXTransactions(stmt.BankTranList.Transactions)...)
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if result.Statement.AccountNumber == "" {
				result.Statement.AccountNumber = string(stmt.CCAcctFrom.AcctID)
			}
			if closing, err := ratToDecimal(&stmt.BalAmt.Rat); err == nil {
				result.Statement.ClosingBalance = closing
			}
			if stmt.BankTranList != nil {
				result.Transactions = append(result.Transactions, convertOFXTransactions(stmt.BankTranList.Transactions)...)
			}
		}
	}

	slog.Debug("Parsed OFX statements",
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return result, nil
}

func convertOFXTransactions(ofxTxns []ofxgo.Transaction) []model.Transaction {
	var txns []model.Transaction
	for _, ofxTx := range ofxTxns {
		amount, err := ratToDecimal(&ofxTx.TrnAmt.Rat)
		if err != nil {
			slog.Warn("Skipping OFX transaction with unparseable amount",
				"fitid", string(ofxTx.FiTID))
			continue
		}

		txns = append(txns, model.Transaction{
			Date:        ofxTx.DtPosted.Time,
			Description: ofxDescription(ofxTx),
			Amount:      amount,
		})
	}
	return txns
}

// ofxDescription prefers PAYEE, falls back to NAME, and appends MEMO when
// it adds information.
func ofxDescription(tx ofxgo.Transaction) string {
	name := string(tx.Name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	}

	memo := strings.TrimSpace(string(tx.Memo))
	if memo != "" && !strings.EqualFold(memo, name) {
		name = strings.TrimSpace(name + " " + memo)
	}
	return strings.TrimSpace(name)
}

type ratLike interface {
	FloatString(prec int) string
}

func ratToDecimal(r ratLike) (decimal.Decimal, error) {
	return decimal.NewFromString(r.FloatString(2))
}
