package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-truth/mcs-platform/internal/common"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    Format
	}{
		{"pdf magic", []byte("%PDF-1.7\n%binary"), FormatPDF},
		{"ofx header", []byte("OFXHEADER:100\nDATA:OFXSGML\n"), FormatOFX},
		{"ofx xml", []byte("<?xml version=\"1.0\"?>\n<OFX><SIGNONMSGSRSV1>"), FormatOFX},
		{"ofx lowercase header", []byte("ofxheader:100\n"), FormatOFX},
		{"csv with header", []byte("Date,Description,Amount\n01/03/2025,COFFEE,-4.50\n"), FormatCSV},
		{"plain text", []byte("Dear customer, your statement is attached."), FormatUnknown},
		{"empty", []byte{}, FormatUnknown},
		{"binary junk", []byte{0x89, 0x50, 0x4e, 0x47}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.content))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"empty means undeclared", "", FormatUnknown, false},
		{"csv", "csv", FormatCSV, false},
		{"uppercase", "PDF", FormatPDF, false},
		{"padded", " ofx ", FormatOFX, false},
		{"unknown literal rejected", "unknown", FormatUnknown, true},
		{"garbage rejected", "xlsx", FormatUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownFormat(t *testing.T) {
	_, err := Parse(context.Background(), []byte("hello world"), "note.txt", FormatUnknown)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestParseEmptyStatement(t *testing.T) {
	// A structurally valid CSV with no transaction rows.
	content := []byte("Date,Description,Amount\n")
	_, err := Parse(context.Background(), content, "empty.csv", FormatUnknown)
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}

func TestParseAssignsHashesAndLineIndexes(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"14/03/2025,EFTPOS WOOLWORTHS,-45.67\n" +
		"15/03/2025,DIRECT CREDIT STRIPE,300.00\n")

	result, err := Parse(context.Background(), content, "export.csv", FormatUnknown)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	for i, txn := range result.Transactions {
		assert.Equal(t, i, txn.LineIndex)
		assert.NotEmpty(t, txn.Hash)
	}
	assert.NotEqual(t, result.Transactions[0].Hash, result.Transactions[1].Hash)
}

func TestParseDeclaredFormatRescuesUnsniffableContent(t *testing.T) {
	// A bank export with a title line that defeats delimiter sniffing.
	content := []byte("Statement Export\n" +
		"Date,Description,Amount\n" +
		"14/03/2025,EFTPOS WOOLWORTHS,-45.67\n")
	require.Equal(t, FormatUnknown, DetectFormat(content))

	_, err := Parse(context.Background(), content, "export.csv", FormatUnknown)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	result, err := Parse(context.Background(), content, "export.csv", FormatCSV)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
}

func TestParseDeclaredFormatOverriddenByContent(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"14/03/2025,EFTPOS WOOLWORTHS,-45.67\n")

	// The content is unambiguously CSV, so the wrong declaration loses.
	result, err := Parse(context.Background(), content, "export.csv", FormatOFX)
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Bank)
	require.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[len(result.Diagnostics)-1], `declared format "ofx"`)
}
