package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/transcript-pipeline/errors"
	"github.com/johnquangdev/transcript-pipeline/internal/adapter/dto/common"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
)

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// HandleSuccess writes a standardized 200 response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	return HandleStatus(logger, c, http.StatusOK, data)
}

// HandleStatus writes a standardized success response with an explicit status
func HandleStatus(logger *zap.Logger, c echo.Context, status int, data interface{}) error {
	resp := common.SuccessResponse{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Int("status", status),
		)
	}

	return c.JSON(status, resp)
}

// HandleError centralizes error handling and logging using provided logger.
// Domain errors are translated to AppErrors first.
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)
	appErr := toAppError(c, err)

	if logger != nil {
		log := logger.Warn
		if appErr.HTTPCode >= http.StatusInternalServerError {
			log = logger.Error
		}
		log("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.String("app_code", appErr.Code.String()),
			zap.Error(err),
		)
	}

	info := ""
	if appErr.Raw != nil {
		info = appErr.Raw.Error()
	}

	body := common.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Info:    info,
		Details: appErr.Details,
	}

	return c.JSON(appErr.HTTPCode, body)
}

// toAppError maps domain errors onto the transport envelope
func toAppError(c echo.Context, err error) errors.AppError {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	jobID := c.Param("id")

	var (
		validationErr *entities.ValidationError
		providerErr   *entities.ProviderError
		parseErr      *entities.ResultParseError
	)
	switch {
	case stdErrors.As(err, &validationErr):
		return errors.ErrValidation(err).WithDetail("field", validationErr.Field)
	case stdErrors.Is(err, entities.ErrJobNotFound):
		return errors.ErrJobNotFound(jobID)
	case stdErrors.Is(err, entities.ErrResultNotReady):
		return errors.ErrResultNotReady(jobID)
	case stdErrors.As(err, &providerErr):
		return errors.ErrProviderUnavailable(providerErr.Op, err).
			WithDetail("retryable", "true")
	case stdErrors.As(err, &parseErr):
		return errors.ErrResultParseFailed(jobID, err)
	default:
		return errors.ErrInternal(err)
	}
}
