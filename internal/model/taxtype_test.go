package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxTypeValid(t *testing.T) {
	for _, tt := range AllTaxTypes() {
		assert.True(t, tt.Valid(), "%s should be valid", tt)
	}

	assert.False(t, TaxType("").Valid())
	assert.False(t, TaxType("GST").Valid())
	assert.False(t, TaxType("gst on income").Valid(), "tax types are case sensitive")
}

func TestTaxTypeGSTApplies(t *testing.T) {
	assert.True(t, TaxGSTOnIncome.GSTApplies())
	assert.True(t, TaxGSTOnExpenses.GSTApplies())
	assert.False(t, TaxGSTFreeIncome.GSTApplies())
	assert.False(t, TaxGSTFreeExpenses.GSTApplies())
	assert.False(t, TaxInputTaxed.GSTApplies())
	assert.False(t, TaxBASExcluded.GSTApplies())
	assert.False(t, TaxNotReportable.GSTApplies())
}

func TestDefaultTaxType(t *testing.T) {
	assert.Equal(t, TaxGSTOnIncome, DefaultTaxType(true, true))
	assert.Equal(t, TaxGSTOnExpenses, DefaultTaxType(false, true))
	assert.Equal(t, TaxBASExcluded, DefaultTaxType(true, false))
	assert.Equal(t, TaxBASExcluded, DefaultTaxType(false, false))
}
