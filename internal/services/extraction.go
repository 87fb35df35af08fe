package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/bill-extractor-api/internal/aggregator"
	"github.com/BerylCAtieno/bill-extractor-api/internal/analyzer"
	"github.com/BerylCAtieno/bill-extractor-api/internal/extractor"
	"github.com/BerylCAtieno/bill-extractor-api/internal/fetcher"
	"github.com/BerylCAtieno/bill-extractor-api/internal/metrics"
	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
	"github.com/BerylCAtieno/bill-extractor-api/internal/repository"
	"github.com/BerylCAtieno/bill-extractor-api/internal/storage"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

type ExtractionService interface {
	// Extract runs the whole pipeline for one document. The returned
	// response is the failure envelope when err is non-nil; id is empty only
	// when the request was rejected before a record was created.
	Extract(ctx context.Context, req *models.ExtractionRequest) (id string, resp *models.ExtractionResponse, err error)
	GetExtraction(ctx context.Context, id string) (*models.RecordResponse, error)
}

type extractionService struct {
	repo      repository.Repository
	fetcher   *fetcher.Fetcher
	extractor *extractor.TextExtractor
	analyzer  analyzer.Analyzer
	archive   storage.Storage
	metrics   *metrics.Metrics
	logger    *utils.Logger
}

// NewExtractionService wires the pipeline stages. archive may be nil, in
// which case source documents are not kept.
func NewExtractionService(
	repo repository.Repository,
	f *fetcher.Fetcher,
	e *extractor.TextExtractor,
	a analyzer.Analyzer,
	archive storage.Storage,
	m *metrics.Metrics,
	logger *utils.Logger,
) ExtractionService {
	return &extractionService{
		repo:      repo,
		fetcher:   f,
		extractor: e,
		analyzer:  a,
		archive:   archive,
		metrics:   m,
		logger:    logger,
	}
}

func (s *extractionService) Extract(ctx context.Context, req *models.ExtractionRequest) (string, *models.ExtractionResponse, error) {
	if req == nil || strings.TrimSpace(req.Document) == "" {
		err := utils.NewBadRequestError("document URL is required")
		return "", aggregator.Failure(err), err
	}

	id := utils.GenerateID()
	logger := s.logger.With("extraction_id", id)

	rec := &models.ExtractionRecord{
		ID:          id,
		DocumentURL: fetcher.RedactURL(req.Document),
		Status:      models.StatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		logger.Error("Failed to create extraction record", "error", err)
		appErr := utils.NewInternalError("failed to record extraction")
		return "", aggregator.Failure(appErr), appErr
	}

	logger.Info("Extraction started")
	start := time.Now()

	extraction, pageCount, err := s.run(ctx, id, req.Document, logger)

	// the record is finalized even when the caller has gone away
	finishCtx := context.WithoutCancel(ctx)

	var resp *models.ExtractionResponse
	var body []byte
	if err == nil {
		resp = aggregator.Envelope(extraction)
		if body, err = json.Marshal(resp); err != nil {
			logger.Error("Failed to encode extraction result", "error", err)
			err = utils.NewInternalError("failed to encode extraction result")
		}
	}

	if err != nil {
		resp = aggregator.Failure(err)
		kind := utils.KindOf(err)
		s.metrics.RecordExtraction(string(kind))

		failBody, _ := json.Marshal(resp)
		if ferr := s.repo.Fail(finishCtx, id, pageCount, string(kind), resp.Message, string(failBody)); ferr != nil {
			logger.Error("Failed to record extraction failure", "error", ferr)
		}

		logger.Warn("Extraction failed",
			"error_kind", kind,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return id, resp, err
	}

	s.metrics.RecordExtraction("success")
	s.metrics.RecordLineItems(extraction.TotalItemCount)

	if err := s.repo.Complete(finishCtx, id, pageCount, resp, string(body)); err != nil {
		logger.Error("Failed to record extraction result", "error", err)
	}

	logger.Info("Extraction completed",
		"pages", pageCount,
		"items", extraction.TotalItemCount,
		"total", extraction.FinalTotalAmount,
		"duration_ms", time.Since(start).Milliseconds())

	return id, resp, nil
}

// run executes the four stages in order and stops at the first error.
func (s *extractionService) run(ctx context.Context, id, documentURL string, logger *utils.Logger) (*models.BillExtraction, int, error) {
	stage := time.Now()
	file, err := s.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return nil, 0, err
	}
	defer s.fetcher.Release(ctx, file)
	s.metrics.ObserveStage(metrics.StageFetch, time.Since(stage))

	if err := s.repo.SetExtension(ctx, id, file.Extension); err != nil {
		logger.Warn("Failed to record file extension", "error", err)
	}

	data, err := s.fetcher.Read(ctx, file)
	if err != nil {
		return nil, 0, utils.NewInternalError(fmt.Sprintf("failed to read downloaded file: %v", err))
	}

	s.archiveSource(ctx, id, file, data, logger)

	stage = time.Now()
	pages, err := s.extractor.Extract(ctx, file.Extension, data)
	if err != nil {
		return nil, 0, err
	}
	s.metrics.ObserveStage(metrics.StageExtract, time.Since(stage))
	logger.Info("Text extracted", "extension", file.Extension, "pages", len(pages))

	stage = time.Now()
	extraction, err := s.analyzer.Analyze(ctx, pages)
	if err != nil {
		return nil, len(pages), err
	}
	s.metrics.ObserveStage(metrics.StageAnalyze, time.Since(stage))

	stage = time.Now()
	aggregator.Aggregate(extraction)
	if mismatches := aggregator.AmountMismatches(extraction); len(mismatches) > 0 {
		s.metrics.RecordAmountMismatches(len(mismatches))
		for _, m := range mismatches {
			logger.Warn("Line item amount differs from rate x quantity",
				"page_no", m.PageNo,
				"item_name", m.ItemName,
				"expected", m.Expected,
				"amount", m.Amount)
		}
	}
	s.metrics.ObserveStage(metrics.StageAggregate, time.Since(stage))

	return extraction, len(pages), nil
}

func (s *extractionService) archiveSource(ctx context.Context, id string, file *fetcher.DownloadedFile, data []byte, logger *utils.Logger) {
	if s.archive == nil {
		return
	}

	key := fmt.Sprintf("bills/%s/source.%s", id, file.Extension)
	if err := s.archive.Upload(ctx, key, data, file.ContentType); err != nil {
		logger.Warn("Failed to archive source document", "key", key, "error", err)
		return
	}
	logger.Debug("Source document archived", "key", key)
}

func (s *extractionService) GetExtraction(ctx context.Context, id string) (*models.RecordResponse, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get extraction", "error", err, "id", id)
		return nil, utils.NewInternalError("failed to retrieve extraction")
	}
	if rec == nil {
		return nil, utils.NewNotFoundError("extraction not found")
	}

	out := &models.RecordResponse{ExtractionRecord: *rec}
	if rec.Response != "" {
		var result models.ExtractionResponse
		if err := json.Unmarshal([]byte(rec.Response), &result); err != nil {
			s.logger.Warn("Stored extraction result is unreadable", "error", err, "id", id)
		} else {
			out.Result = &result
		}
	}

	return out, nil
}
