// Package ingest is the upload boundary: it enforces document limits and
// hands accepted statements to the job pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/job"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/parser"
)

// Service validates uploads and runs the ingestion pipeline.
type Service struct {
	jobs     *job.Manager
	logger   *slog.Logger
	maxBytes int64
}

// NewService creates the ingest service.
func NewService(jobs *job.Manager, maxBytes int64, logger *slog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, maxBytes: maxBytes, logger: logger}
}

// Validate rejects oversized or unrecognizable documents before a job is
// created. The format check sniffs content with the caller's declared
// format as fallback; the filename is informational only.
func (s *Service) Validate(content []byte, fileName string, declared parser.Format) error {
	if int64(len(content)) > s.maxBytes {
		return common.NewUserError(
			fmt.Sprintf("document exceeds the %d MB limit", s.maxBytes>>20),
			common.ErrDocumentTooLarge)
	}
	if parser.DetectFormat(content) == parser.FormatUnknown && !declared.Valid() {
		return common.NewUserError(
			fmt.Sprintf("%q is not a recognized statement format", fileName),
			common.ErrUnsupportedFormat)
	}
	return nil
}

// Ingest validates the document, creates a review job, and runs the
// pipeline to completion. Returns the job in its post-pipeline state.
func (s *Service) Ingest(ctx context.Context, entityID, sourceReference, fileName string, content []byte, declared parser.Format, progress func(done, total int)) (*model.ReviewJob, error) {
	if err := s.Validate(content, fileName, declared); err != nil {
		return nil, err
	}

	j, err := s.jobs.CreateJob(ctx, entityID, sourceReference, fileName)
	if err != nil {
		return nil, err
	}

	if err := s.jobs.Run(ctx, j.ID, content, declared, progress); err != nil {
		return j, err
	}

	return s.jobs.Progress(ctx, j.ID)
}

// IngestAsync validates synchronously so the caller gets an immediate
// rejection, then runs the pipeline in the background. The returned job
// is in the created state.
func (s *Service) IngestAsync(ctx context.Context, entityID, sourceReference, fileName string, content []byte, declared parser.Format) (*model.ReviewJob, error) {
	if err := s.Validate(content, fileName, declared); err != nil {
		return nil, err
	}

	j, err := s.jobs.CreateJob(ctx, entityID, sourceReference, fileName)
	if err != nil {
		return nil, err
	}

	go func() {
		// Detached from the request context: the pipeline outlives the
		// upload call.
		if err := s.jobs.Run(context.Background(), j.ID, content, declared, nil); err != nil {
			s.logger.Error("background ingestion failed",
				"job_id", j.ID,
				"error", err)
		}
	}()

	return j, nil
}
