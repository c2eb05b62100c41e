package llm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Classifier implements the service.Classifier interface using LLM APIs.
type Classifier struct {
	client      Client
	cache       *suggestionCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClassifier creates a new LLM-based classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		client:      client,
		cache:       newSuggestionCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Classify suggests an account and tax type for a single transaction.
// Provider output is validated against the request's chart of accounts and
// tax type vocabulary before it is returned.
func (c *Classifier) Classify(ctx context.Context, req service.ClassifyRequest) (*service.ClassifyResponse, error) {
	key := cacheKey(req)

	if cached, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for classification",
			"description", common.ScrubPII(req.Description))
		result := cached
		return &result, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(req)

	var raw ClassificationResponse
	operation := func() error {
		var err error
		raw, err = c.client.Classify(ctx, prompt)
		return err
	}

	if err := common.WithRetry(ctx, operation, c.retryOpts); err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	response, err := c.validate(req, raw)
	if err != nil {
		return nil, err
	}

	c.cache.set(key, *response)

	c.logger.Info("transaction classified",
		"description", common.ScrubPII(req.Description),
		"account_code", response.AccountCode,
		"tax_type", response.TaxType,
		"confidence", response.Confidence)

	return response, nil
}

// validate checks provider output against the request vocabulary. Account
// names always come from the chart of accounts, never from the model.
func (c *Classifier) validate(req service.ClassifyRequest, raw ClassificationResponse) (*service.ClassifyResponse, error) {
	var account *model.Account
	code := strings.TrimSpace(raw.AccountCode)
	for i := range req.Accounts {
		if req.Accounts[i].Code == code {
			account = &req.Accounts[i]
			break
		}
	}
	if account == nil {
		return nil, fmt.Errorf("classifier returned unknown account code %q", sanitizeText(code))
	}

	taxType := model.TaxType(strings.TrimSpace(raw.TaxType))
	if !taxTypeAllowed(taxType, req.TaxTypes) {
		return nil, fmt.Errorf("classifier returned unknown tax type %q", sanitizeText(raw.TaxType))
	}

	return &service.ClassifyResponse{
		AccountCode: account.Code,
		AccountName: account.Name,
		TaxType:     taxType,
		Rationale:   sanitizeText(raw.Rationale),
		Confidence:  clampConfidence(raw.Confidence),
	}, nil
}

// Close releases the classifier's background resources.
func (c *Classifier) Close() error {
	c.cache.Close()
	c.rateLimiter.Close()
	return nil
}

func taxTypeAllowed(t model.TaxType, allowed []model.TaxType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// cacheKey derives a stable cache key from the classification inputs.
func cacheKey(req service.ClassifyRequest) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", req.Description, req.Amount.String())))
	return fmt.Sprintf("%x", h)
}

// buildPrompt creates the prompt for transaction classification. Only
// statement data and the entity's own vocabulary go into the prompt; prior
// model output is never included.
func buildPrompt(req service.ClassifyRequest) string {
	var b strings.Builder

	direction := "money out"
	if req.Amount.IsPositive() {
		direction = "money in"
	}

	fmt.Fprintf(&b, "Classify this bank transaction.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Amount: %s (%s)\n\n", req.Amount.StringFixed(2), direction)

	b.WriteString("Available accounts:\n")
	for _, a := range req.Accounts {
		if a.Section != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", a.Code, a.Name, a.Section)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", a.Code, a.Name)
		}
	}

	b.WriteString("\nAvailable tax types:\n")
	for _, t := range req.TaxTypes {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	b.WriteString(`
Respond with JSON only, in this exact format:
{"accountCode": "...", "accountName": "...", "taxType": "...", "confidence": 0.85, "reasoning": "brief explanation"}

The accountCode and taxType must come from the lists above. The confidence
must be between 0 and 1.`)

	return b.String()
}
