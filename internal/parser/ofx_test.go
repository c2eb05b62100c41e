package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>AUD
<BANKACCTFROM>
<BANKID>013123
<ACCTID>445566778
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250301120000[0:GMT]
<DTEND>20250331120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250314120000[0:GMT]
<TRNAMT>-45.67
<FITID>MAR14A
<NAME>EFTPOS WOOLWORTHS
<MEMO>SYDNEY NSW
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250315120000[0:GMT]
<TRNAMT>300.00
<FITID>MAR15A
<NAME>DIRECT CREDIT STRIPE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>654.33
<DTASOF>20250331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseOFX(t *testing.T) {
	result, err := parseOFX(context.Background(), []byte(testOFX))
	require.NoError(t, err)

	assert.Equal(t, "ofx", result.Bank)
	assert.Equal(t, "445566778", result.Statement.AccountNumber)
	assert.Equal(t, "013123", result.Statement.BSB)
	assert.Equal(t, "654.33", result.Statement.ClosingBalance.StringFixed(2))
	assert.Equal(t, "1 Mar 2025", result.Statement.PeriodStart)
	assert.Equal(t, "31 Mar 2025", result.Statement.PeriodEnd)

	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "EFTPOS WOOLWORTHS SYDNEY NSW", first.Description,
		"memo is appended when it adds information")
	assert.Equal(t, "-45.67", first.Amount.StringFixed(2))
	assert.Equal(t, 2025, first.Date.Year())

	second := result.Transactions[1]
	assert.Equal(t, "DIRECT CREDIT STRIPE", second.Description)
	assert.Equal(t, "300.00", second.Amount.StringFixed(2))
}

func TestParseOFXWithLeadingWhitespace(t *testing.T) {
	// Some exporters emit a blank line before the header.
	content := "\n\n" + testOFX
	result, err := parseOFX(context.Background(), []byte(content))
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 2)
}

func TestParseOFXInvalid(t *testing.T) {
	_, err := parseOFX(context.Background(), []byte("OFXHEADER:100\ngarbage"))
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	t.Run("uppercases severity", func(t *testing.T) {
		got := preprocessOFX("<SEVERITY>Info</SEVERITY>")
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", got)
	})

	t.Run("closes broken tags", func(t *testing.T) {
		got := preprocessOFX("<OFX\n<STMTTRN\n")
		assert.True(t, strings.Contains(got, "<OFX>"))
		assert.True(t, strings.Contains(got, "<STMTTRN>"))
	})

	t.Run("trims leading whitespace", func(t *testing.T) {
		got := preprocessOFX("  \n\nOFXHEADER:100")
		assert.True(t, strings.HasPrefix(got, "OFXHEADER"))
	})
}
