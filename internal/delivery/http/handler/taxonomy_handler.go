package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/pkg/utils"
	"github.com/outsource-importer/internal/pkg/validator"
	"github.com/outsource-importer/internal/usecase"
	"github.com/outsource-importer/internal/usecase/dto"
	"go.uber.org/zap"
)

type TaxonomyHandler struct {
	taxonomyUC *usecase.TaxonomyMappingUseCase
	logger     *zap.Logger
}

func NewTaxonomyHandler(taxonomyUC *usecase.TaxonomyMappingUseCase, logger *zap.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyUC: taxonomyUC,
		logger:     logger,
	}
}

// BuildMapping - POST /api/v1/taxonomy-mappings
func (h *TaxonomyHandler) BuildMapping(c *fiber.Ctx) error {
	var req dto.TaxonomyMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Wrap(err))
	}

	result, err := h.taxonomyUC.Build(c.UserContext(), usecase.TaxonomyRequest{
		Endpoint: req.Endpoint,
		Provider: req.Provider,
		Activity: req.Activity,
		PoiType:  req.PoiType,
	})
	if err != nil {
		return utils.SendError(c, err)
	}

	entries := 0
	for _, group := range result.Document {
		for _, list := range group {
			entries += len(list)
		}
	}

	return utils.SendSuccess(c, dto.TaxonomyMappingResponse{
		FileName: result.FileName,
		Groups:   len(result.Document),
		Entries:  entries,
	}, nil)
}
