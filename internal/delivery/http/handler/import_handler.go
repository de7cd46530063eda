package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/pkg/utils"
	"github.com/outsource-importer/internal/pkg/validator"
	"github.com/outsource-importer/internal/usecase"
	"github.com/outsource-importer/internal/usecase/dto"
	"go.uber.org/zap"
)

// ImportHandler - триггеры импорта: синхронный, пакетный и через очередь
type ImportHandler struct {
	importUC usecase.ImportUseCase
	batchUC  *usecase.BatchUseCase
	queue    repository.StreamRepository
	logger   *zap.Logger
}

// NewImportHandler; queue может быть nil, тогда постановка в очередь недоступна
func NewImportHandler(
	importUC usecase.ImportUseCase,
	batchUC *usecase.BatchUseCase,
	queue repository.StreamRepository,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		importUC: importUC,
		batchUC:  batchUC,
		queue:    queue,
		logger:   logger,
	}
}

// Import - POST /api/v1/imports
func (h *ImportHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}

	job, err := importJob(req)
	if err != nil {
		return utils.SendError(c, err)
	}

	start := time.Now()
	id, err := h.importUC.Import(c.UserContext(), job)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.ImportResponse{
		FeatureID: id,
		SourceID:  job.SourceID,
		Endpoint:  job.Endpoint,
	}, &utils.Meta{TimeMSec: float64(time.Since(start).Microseconds()) / 1000})
}

// ImportBatch - POST /api/v1/imports/batch
func (h *ImportHandler) ImportBatch(c *fiber.Ctx) error {
	var req dto.BatchImportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}

	featureType, _ := domain.ParseFeatureType(req.Type)
	provider, _ := domain.ParseProvider(req.Provider)
	ctx := c.UserContext()

	var (
		result *usecase.BatchResult
		err    error
	)
	switch {
	case len(req.SourceIDs) > 0:
		result, err = h.batchUC.ImportMany(ctx, usecase.BatchRequest{
			Type:      featureType,
			Endpoint:  req.Endpoint,
			Provider:  provider,
			SourceIDs: req.SourceIDs,
		})
	case req.Reimport:
		result, err = h.batchUC.Reimport(ctx, provider, req.Endpoint, featureType)
	default:
		result, err = h.batchUC.ImportAll(ctx, provider, req.Endpoint, featureType)
	}
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.BatchImportResponse{
		Imported: result.Imported,
		Failed:   make([]dto.FailedImport, 0, len(result.Failed)),
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, dto.FailedImport{SourceID: f.SourceID, Error: f.Err.Error()})
	}

	return utils.SendSuccess(c, resp, &utils.Meta{
		Total:  len(result.Imported) + len(result.Failed),
		Failed: len(result.Failed),
	})
}

// Enqueue - POST /api/v1/imports/queue
func (h *ImportHandler) Enqueue(c *fiber.Ctx) error {
	if h.queue == nil {
		return utils.SendError(c, errors.ErrInternalServer.WithDetails(map[string]interface{}{
			"reason": "import queue is not configured",
		}))
	}

	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}
	job, err := importJob(req)
	if err != nil {
		return utils.SendError(c, err)
	}

	event := domain.ImportRequestEvent{
		JobID:    uuid.New(),
		Type:     job.Type,
		Endpoint: job.Endpoint,
		Provider: job.Provider,
		SourceID: job.SourceID,
	}
	if err := h.queue.PublishToStream(c.UserContext(), domain.StreamImportRequest, event); err != nil {
		h.logger.Error("Failed to enqueue import", zap.String("source_id", job.SourceID), zap.Error(err))
		return utils.SendError(c, errors.ErrInternalServer.Wrap(err))
	}

	return utils.SendAccepted(c, dto.QueuedImportResponse{JobID: event.JobID})
}

func importJob(req dto.ImportRequest) (domain.ImportJob, error) {
	if err := validator.Validate(&req); err != nil {
		return domain.ImportJob{}, errors.ErrInvalidRequest.Wrap(err)
	}
	featureType, err := domain.ParseFeatureType(req.Type)
	if err != nil {
		return domain.ImportJob{}, errors.ErrUnsupportedType.Wrap(err)
	}
	provider, ok := domain.ParseProvider(req.Provider)
	if !ok {
		return domain.ImportJob{}, errors.ErrUnsupportedProvider
	}
	return domain.ImportJob{
		Type:     featureType,
		Endpoint: req.Endpoint,
		Provider: provider,
		SourceID: req.SourceID,
	}, nil
}
