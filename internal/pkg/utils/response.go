package utils

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/outsource-importer/internal/pkg/errors"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

// Meta - итоги для пакетных ответов
type Meta struct {
	Total    int     `json:"total,omitempty"`
	Failed   int     `json:"failed,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendAccepted - 202 для заданий, поставленных в очередь
func SendAccepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(SuccessResponse{Data: data})
}

// SendError ищет AppError в цепочке ошибки (ImportError оборачивает её).
// Ошибки валидатора раскрываются в details.fields.
func SendError(c *fiber.Ctx, err error) error {
	appErr, ok := errors.As(err)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: errors.ErrInternalServer,
		})
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		appErr = appErr.WithDetails(map[string]interface{}{"fields": fields})
	}

	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Error: appErr,
	})
}
