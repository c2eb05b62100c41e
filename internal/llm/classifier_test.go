package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// stubClient returns canned responses without any network traffic.
type stubClient struct {
	response ClassificationResponse
	err      error
	calls    int
}

func (s *stubClient) Classify(_ context.Context, _ string) (ClassificationResponse, error) {
	s.calls++
	if s.err != nil {
		return ClassificationResponse{}, s.err
	}
	return s.response, nil
}

func newTestClassifier(t *testing.T, client Client) *Classifier {
	t.Helper()

	c := &Classifier{
		client:      client,
		cache:       newSuggestionCache(time.Minute),
		logger:      slog.Default(),
		rateLimiter: newRateLimiter(600),
		retryOpts: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testRequest() service.ClassifyRequest {
	return service.ClassifyRequest{
		Description: "GITHUB SUBSCRIPTION",
		Amount:      decimal.RequireFromString("-15.40"),
		Accounts: []model.Account{
			{EntityID: "e", Code: "200", Name: "Sales", Section: "Income"},
			{EntityID: "e", Code: "420", Name: "Office Expenses", Section: "Expenses"},
		},
		TaxTypes: model.AllTaxTypes(),
	}
}

func TestClassifyValidResponse(t *testing.T) {
	stub := &stubClient{response: ClassificationResponse{
		AccountCode: "420",
		AccountName: "something the model made up",
		TaxType:     "GST on Expenses",
		Rationale:   "software subscription",
		Confidence:  0.88,
	}}
	classifier := newTestClassifier(t, stub)

	resp, err := classifier.Classify(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "420", resp.AccountCode)
	assert.Equal(t, "Office Expenses", resp.AccountName,
		"account name must come from the chart, never the model")
	assert.Equal(t, model.TaxGSTOnExpenses, resp.TaxType)
	assert.InDelta(t, 0.88, resp.Confidence, 0.0001)
}

func TestClassifyUnknownAccountCode(t *testing.T) {
	stub := &stubClient{response: ClassificationResponse{
		AccountCode: "999",
		TaxType:     "GST on Expenses",
		Confidence:  0.9,
	}}
	classifier := newTestClassifier(t, stub)

	_, err := classifier.Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account code")
}

func TestClassifyUnknownTaxType(t *testing.T) {
	stub := &stubClient{response: ClassificationResponse{
		AccountCode: "420",
		TaxType:     "VAT Standard Rate",
		Confidence:  0.9,
	}}
	classifier := newTestClassifier(t, stub)

	_, err := classifier.Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tax type")
}

func TestClassifyClampsConfidence(t *testing.T) {
	stub := &stubClient{response: ClassificationResponse{
		AccountCode: "420",
		TaxType:     "GST on Expenses",
		Confidence:  3.5,
	}}
	classifier := newTestClassifier(t, stub)

	resp, err := classifier.Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Confidence)
}

func TestClassifyUsesCache(t *testing.T) {
	stub := &stubClient{response: ClassificationResponse{
		AccountCode: "420",
		TaxType:     "GST on Expenses",
		Confidence:  0.8,
	}}
	classifier := newTestClassifier(t, stub)
	ctx := context.Background()

	first, err := classifier.Classify(ctx, testRequest())
	require.NoError(t, err)
	second, err := classifier.Classify(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls, "second call must be served from cache")
	assert.Equal(t, first, second)
}

func TestClassifyRetriesTransientErrors(t *testing.T) {
	stub := &stubClient{err: &common.RetryableError{
		Err:       errors.New("upstream 503"),
		Retryable: true,
	}}
	classifier := newTestClassifier(t, stub)

	_, err := classifier.Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
}

func TestClassifyDoesNotRetryPermanentErrors(t *testing.T) {
	stub := &stubClient{err: &common.RetryableError{
		Err:       errors.New("invalid api key"),
		Retryable: false,
	}}
	classifier := newTestClassifier(t, stub)

	_, err := classifier.Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(testRequest())

	assert.Contains(t, prompt, "GITHUB SUBSCRIPTION")
	assert.Contains(t, prompt, "-15.40")
	assert.Contains(t, prompt, "money out")
	assert.Contains(t, prompt, "420: Office Expenses (Expenses)")
	assert.Contains(t, prompt, "200: Sales (Income)")
	assert.Contains(t, prompt, "GST on Income")
	assert.Contains(t, prompt, "BAS Excluded")

	credit := testRequest()
	credit.Amount = decimal.RequireFromString("500.00")
	assert.Contains(t, buildPrompt(credit), "money in")
}

func TestCacheKeyStability(t *testing.T) {
	a := cacheKey(testRequest())
	b := cacheKey(testRequest())
	assert.Equal(t, a, b)

	other := testRequest()
	other.Amount = decimal.RequireFromString("-15.41")
	assert.NotEqual(t, a, cacheKey(other))
}

func TestNewClassifierProviders(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai", "Anthropic"} {
		c, err := NewClassifier(Config{Provider: provider, APIKey: "test-key"}, slog.Default())
		require.NoError(t, err, provider)
		require.NoError(t, c.Close())
	}

	_, err := NewClassifier(Config{Provider: "oracle", APIKey: "k"}, slog.Default())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}

func TestSuggestionCacheExpiry(t *testing.T) {
	cache := newSuggestionCache(10 * time.Millisecond)
	defer cache.Close()

	cache.set("k", service.ClassifyResponse{AccountCode: "420"})

	got, found := cache.get("k")
	require.True(t, found)
	assert.Equal(t, "420", got.AccountCode)
	assert.Equal(t, 1, cache.size())

	time.Sleep(20 * time.Millisecond)
	_, found = cache.get("k")
	assert.False(t, found, "expired entries must not be served")
}

func TestRateLimiterAcquire(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.Close()

	assert.True(t, rl.tryAcquire())
	assert.True(t, rl.tryAcquire())
	assert.False(t, rl.tryAcquire(), "bucket is empty")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.wait(ctx)
	assert.Error(t, err, "wait must respect the context when no token arrives")
}
