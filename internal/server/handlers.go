package server

import (
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/parser"
)

// webhookStatementRequest is the upload payload delivered by external
// automation. Content is base64 so binary statements survive JSON; the
// optional format declares the document type when sniffing cannot.
type webhookStatementRequest struct {
	EntityID        string `json:"entityId"`
	SourceReference string `json:"sourceReference"`
	FileName        string `json:"fileName"`
	Format          string `json:"format"`
	Content         string `json:"content"`
}

type confirmRequest struct {
	AccountCode string `json:"accountCode"`
	TaxType     string `json:"taxType"`
}

type abandonRequest struct {
	Reason string `json:"reason"`
}

// jobResponse is the outward job read model.
type jobResponse struct {
	ID                string  `json:"id"`
	EntityID          string  `json:"entityId"`
	FileName          string  `json:"fileName"`
	Status            string  `json:"status"`
	FailureReason     string  `json:"failureReason,omitempty"`
	AccountName       string  `json:"accountName,omitempty"`
	BSB               string  `json:"bsb,omitempty"`
	AccountNumber     string  `json:"accountNumber,omitempty"`
	PeriodStart       string  `json:"periodStart,omitempty"`
	PeriodEnd         string  `json:"periodEnd,omitempty"`
	OpeningBalance    string  `json:"openingBalance"`
	ClosingBalance    string  `json:"closingBalance"`
	TotalTransactions int     `json:"totalTransactions"`
	ConfirmedCount    int     `json:"confirmedCount"`
	RejectedCount     int     `json:"rejectedCount"`
	ProgressPercent   int     `json:"progressPercent"`
	ReceivedAt        string  `json:"receivedAt"`
	CompletedAt       *string `json:"completedAt,omitempty"`
}

// transactionResponse is the outward pending-transaction read model.
// NeedsReview distinguishes a low-confidence suggestion from a confident
// one; a transaction with no suggestion at all always needs review.
type transactionResponse struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	Description          string  `json:"description"`
	Amount               string  `json:"amount"`
	Status               string  `json:"status"`
	SuggestedAccountCode string  `json:"suggestedAccountCode,omitempty"`
	SuggestedAccountName string  `json:"suggestedAccountName,omitempty"`
	SuggestedTaxType     string  `json:"suggestedTaxType,omitempty"`
	SuggestionSource     string  `json:"suggestionSource"`
	Confidence           float64 `json:"confidence"`
	NeedsReview          bool    `json:"needsReview"`
	Rationale            string  `json:"rationale,omitempty"`
	ConfirmedAccountCode string  `json:"confirmedAccountCode,omitempty"`
	ConfirmedTaxType     string  `json:"confirmedTaxType,omitempty"`
	GSTAmount            string  `json:"gstAmount"`
	NetAmount            string  `json:"netAmount"`
}

func toJobResponse(j *model.ReviewJob) jobResponse {
	resp := jobResponse{
		ID:                j.ID,
		EntityID:          j.EntityID,
		FileName:          j.FileName,
		Status:            string(j.Status),
		FailureReason:     j.FailureReason,
		AccountName:       j.Statement.AccountName,
		BSB:               j.Statement.BSB,
		AccountNumber:     j.Statement.AccountNumber,
		PeriodStart:       j.Statement.PeriodStart,
		PeriodEnd:         j.Statement.PeriodEnd,
		OpeningBalance:    j.Statement.OpeningBalance.StringFixed(2),
		ClosingBalance:    j.Statement.ClosingBalance.StringFixed(2),
		TotalTransactions: j.TotalTransactions,
		ConfirmedCount:    j.ConfirmedCount,
		RejectedCount:     j.RejectedCount,
		ProgressPercent:   j.ProgressPercent(),
		ReceivedAt:        j.ReceivedAt.Format(time.RFC3339),
	}
	if j.CompletedAt != nil {
		completed := j.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func toTransactionResponse(t *model.PendingTransaction, reviewThreshold float64) transactionResponse {
	return transactionResponse{
		ID:                   t.ID,
		Date:                 t.Transaction.Date.Format("2006-01-02"),
		Description:          t.Transaction.Description,
		Amount:               t.Transaction.Amount.StringFixed(2),
		Status:               string(t.Status),
		SuggestedAccountCode: t.Suggestion.AccountCode,
		SuggestedAccountName: t.Suggestion.AccountName,
		SuggestedTaxType:     string(t.Suggestion.TaxType),
		SuggestionSource:     string(t.Suggestion.Source),
		Confidence:           t.Suggestion.Confidence,
		NeedsReview:          t.Status == model.StatusSuggested && t.Suggestion.NeedsReview(reviewThreshold),
		Rationale:            t.Suggestion.Rationale,
		ConfirmedAccountCode: t.ConfirmedAccountCode,
		ConfirmedTaxType:     string(t.ConfirmedTaxType),
		GSTAmount:            t.GSTAmount.StringFixed(2),
		NetAmount:            t.NetAmount.StringFixed(2),
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleWebhookStatement(c *fiber.Ctx) error {
	var req webhookStatementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.EntityID == "" || req.FileName == "" || req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "entityId, fileName and content are required")
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "content must be base64 encoded")
	}

	declared, err := parser.ParseFormat(req.Format)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "format must be one of pdf, ofx, csv")
	}

	j, err := s.ingest.IngestAsync(c.Context(), req.EntityID, req.SourceReference, req.FileName, content, declared)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(j))
}

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	entityID := c.Query("entityId")
	if entityID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "entityId query parameter is required")
	}
	limit := c.QueryInt("limit", 50)

	jobs, err := s.storage.ListJobs(c.Context(), entityID, limit)
	if err != nil {
		return err
	}

	resp := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}
	return c.JSON(resp)
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	j, err := s.jobs.Progress(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toJobResponse(j))
}

func (s *Server) handleJobTransactions(c *fiber.Ctx) error {
	txns, err := s.storage.GetJobTransactions(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	resp := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		resp = append(resp, toTransactionResponse(&txns[i], s.reviewThreshold))
	}
	return c.JSON(resp)
}

func (s *Server) handleConfirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.AccountCode == "" || req.TaxType == "" {
		return fiber.NewError(fiber.StatusBadRequest, "accountCode and taxType are required")
	}

	if err := s.jobs.Confirm(c.Context(), c.Params("id"), req.AccountCode, model.TaxType(req.TaxType)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "confirmed"})
}

func (s *Server) handleReject(c *fiber.Ctx) error {
	if err := s.jobs.Reject(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}

func (s *Server) handleAcceptAll(c *fiber.Ctx) error {
	confirmed, err := s.jobs.AcceptAll(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "confirmed": confirmed})
}

func (s *Server) handleFinalize(c *fiber.Ctx) error {
	result, err := s.jobs.Finalize(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":               "committed",
		"ledgerEntriesWritten": result.LedgerEntriesWritten,
		"patternsUpdated":      result.PatternsUpdated,
	})
}

func (s *Server) handleAbandon(c *fiber.Ctx) error {
	var req abandonRequest
	// The body is optional for abandon.
	_ = c.BodyParser(&req)

	if err := s.jobs.Abandon(c.Context(), c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "abandoned"})
}
