package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-truth/mcs-platform/internal/commit"
	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/config"
	"github.com/faceless-truth/mcs-platform/internal/engine"
	"github.com/faceless-truth/mcs-platform/internal/learning"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/parser"
	"github.com/faceless-truth/mcs-platform/internal/service"
	"github.com/faceless-truth/mcs-platform/internal/testutil"
)

var testCSV = []byte("Date,Description,Amount\n" +
	"14/03/2025,EFTPOS WOOLWORTHS,-45.67\n" +
	"15/03/2025,RENT PAYMENT,-1100.00\n")

// stubClassifier returns a fixed answer for every transaction.
type stubClassifier struct {
	response *service.ClassifyResponse
	err      error
}

func (s *stubClassifier) Classify(_ context.Context, _ service.ClassifyRequest) (*service.ClassifyResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.response
	return &resp, nil
}

func (s *stubClassifier) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Classification: config.Classification{
			AutoAcceptThreshold: 0.90,
			ReviewThreshold:     0.60,
			TrustThreshold:      5,
			MaxWorkers:          2,
		},
		GSTRegistered: true,
	}
}

func setupManager(t *testing.T) (*Manager, *testutil.TestDB) {
	t.Helper()

	db := testutil.SetupTestDB(t).SeedAccounts()
	store := learning.NewStore(db.Storage, 5)
	classifier := &stubClassifier{response: &service.ClassifyResponse{
		AccountCode: "420",
		AccountName: "Office Expenses",
		TaxType:     model.TaxGSTOnExpenses,
		Confidence:  0.8,
		Rationale:   "looks like a supplier payment",
	}}

	cfg := testConfig()
	eng := engine.New(store, classifier, cfg.Classification, nil)
	committer := commit.NewEngine(db.Storage, store, nil)
	return NewManager(db.Storage, eng, committer, cfg, nil), db
}

// runJob drives a fresh job through Run and returns it awaiting review.
func runJob(t *testing.T, m *Manager, db *testutil.TestDB, content []byte) (*model.ReviewJob, []model.PendingTransaction) {
	t.Helper()
	ctx := context.Background()

	job, err := m.CreateJob(ctx, testutil.TestEntityID, "test", "march.csv")
	require.NoError(t, err)
	require.NoError(t, m.Run(ctx, job.ID, content, parser.FormatUnknown, nil))

	txns, err := db.Storage.GetJobTransactions(ctx, job.ID)
	require.NoError(t, err)
	return job, txns
}

func TestRunPipeline(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, txns := runJob(t, m, db, testCSV)

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobAwaitingReview, got.Status)
	assert.Equal(t, 2, got.TotalTransactions)

	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, model.StatusSuggested, txn.Status)
		assert.Equal(t, model.SourceAI, txn.Suggestion.Source)
		assert.Equal(t, "420", txn.Suggestion.AccountCode)
	}
}

func TestRunParseFailure(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, err := m.CreateJob(ctx, testutil.TestEntityID, "test", "broken.bin")
	require.NoError(t, err)

	err = m.Run(ctx, job.ID, []byte{0x89, 'P', 'N', 'G'}, parser.FormatUnknown, nil)
	require.Error(t, err)

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "the statement could not be parsed", got.FailureReason)
}

func TestRunDropsAlreadyIngested(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	runJob(t, m, db, testCSV)

	// Re-ingesting the identical statement leaves nothing to review.
	job, err := m.CreateJob(ctx, testutil.TestEntityID, "test", "march.csv")
	require.NoError(t, err)

	err = m.Run(ctx, job.ID, testCSV, parser.FormatUnknown, nil)
	require.ErrorIs(t, err, common.ErrDuplicateEntry)

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
}

func TestRunAcceptsReingestAfterAbandon(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	first, _ := runJob(t, m, db, testCSV)
	require.NoError(t, m.Abandon(ctx, first.ID, "wrong entity selected"))

	// Nothing was committed, so the same statement must ingest cleanly.
	job, err := m.CreateJob(ctx, testutil.TestEntityID, "test", "march.csv")
	require.NoError(t, err)
	require.NoError(t, m.Run(ctx, job.ID, testCSV, parser.FormatUnknown, nil))

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobAwaitingReview, got.Status)
	assert.Equal(t, 2, got.TotalTransactions)
}

func TestRunFiltersTransactionsOutsidePeriod(t *testing.T) {
	m, db := setupManager(t)

	// One transaction dated before DTSTART must not survive ingestion.
	ofx := []byte(`OFXHEADER:100
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
<DTPOSTED>20250215120000[0:GMT]
<TRNAMT>-10.00
<FITID>FEB15A
<NAME>STRAGGLER FROM FEBRUARY
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250314120000[0:GMT]
<TRNAMT>-45.67
<FITID>MAR14A
<NAME>EFTPOS WOOLWORTHS
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>654.33
<DTASOF>20250331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`)

	_, txns := runJob(t, m, db, ofx)
	require.Len(t, txns, 1)
	assert.Equal(t, "EFTPOS WOOLWORTHS", txns[0].Transaction.Description)
}

func TestConfirm(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	_, txns := runJob(t, m, db, testCSV)

	require.NoError(t, m.Confirm(ctx, txns[1].ID, "469", model.TaxGSTOnExpenses))

	got, err := db.Storage.GetPendingTransaction(ctx, txns[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "469", got.ConfirmedAccountCode)
	assert.Equal(t, "100.00", got.GSTAmount.StringFixed(2))
	assert.Equal(t, "1000.00", got.NetAmount.StringFixed(2))
}

func TestConfirmInvalidTaxType(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	_, txns := runJob(t, m, db, testCSV)

	err := m.Confirm(ctx, txns[0].ID, "469", "Mystery Tax")
	require.ErrorIs(t, err, common.ErrInvalidConfig)

	got, err := db.Storage.GetPendingTransaction(ctx, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuggested, got.Status, "invalid decisions must not change the transaction")
}

func TestConfirmUnknownAccount(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	_, txns := runJob(t, m, db, testCSV)

	err := m.Confirm(ctx, txns[0].ID, "999", model.TaxGSTOnExpenses)
	require.ErrorIs(t, err, common.ErrNotFound)

	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr, "the reviewer gets a safe, actionable message")
}

func TestReject(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	_, txns := runJob(t, m, db, testCSV)

	require.NoError(t, m.Reject(ctx, txns[0].ID))

	got, err := db.Storage.GetPendingTransaction(ctx, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
}

func TestAcceptAll(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, txns := runJob(t, m, db, testCSV)

	// Strip the suggestion from one transaction; it must be left for
	// manual review.
	require.NoError(t, db.Storage.UpdateSuggestion(ctx, txns[0].ID, model.None()))

	confirmed, err := m.AcceptAll(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	got, err := db.Storage.GetJobTransactions(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuggested, got[0].Status)
	assert.Equal(t, model.StatusConfirmed, got[1].Status)
	assert.Equal(t, "420", got[1].ConfirmedAccountCode)
}

func TestFinalize(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, _ := runJob(t, m, db, testCSV)

	_, err := m.AcceptAll(ctx, job.ID)
	require.NoError(t, err)

	result, err := m.Finalize(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.LedgerEntriesWritten)

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCommitted, got.Status)

	entries, err := db.Storage.GetLedgerEntriesByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// The whole flow fed the learning loop.
	pattern, err := db.Storage.GetLearningPattern(ctx, testutil.TestEntityID, "RENT PAYMENT")
	require.NoError(t, err)
	assert.Equal(t, 1, pattern.ConfirmationCount)

	_, err = m.Finalize(ctx, job.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyCommitted)
}

func TestFinalizeWithUnreviewedTransactions(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, txns := runJob(t, m, db, testCSV)
	require.NoError(t, m.Confirm(ctx, txns[0].ID, "420", model.TaxGSTOnExpenses))

	_, err := m.Finalize(ctx, job.ID)
	require.ErrorIs(t, err, common.ErrJobNotReviewable)
	assert.Equal(t, "1 transactions are still unreviewed", common.UserMessage(err))
}

func TestFinalizeWrongState(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	job, err := m.CreateJob(ctx, testutil.TestEntityID, "test", "march.csv")
	require.NoError(t, err)

	_, err = m.Finalize(ctx, job.ID)
	assert.ErrorIs(t, err, common.ErrJobNotReviewable)
}

func TestAbandon(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, _ := runJob(t, m, db, testCSV)

	require.NoError(t, m.Abandon(ctx, job.ID, ""))

	got, err := db.Storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "abandoned by reviewer", got.FailureReason)
}

func TestProgress(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	job, txns := runJob(t, m, db, testCSV)
	require.NoError(t, m.Confirm(ctx, txns[0].ID, "420", model.TaxGSTOnExpenses))
	require.NoError(t, m.Reject(ctx, txns[1].ID))

	got, err := m.Progress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfirmedCount)
	assert.Equal(t, 1, got.RejectedCount)
}
