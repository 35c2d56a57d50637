package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"

	"github.com/healthfirst/portal-api/internal/flow"
	"github.com/healthfirst/portal-api/internal/service/availability"
	"github.com/healthfirst/portal-api/internal/upstream"
	apperrors "github.com/healthfirst/portal-api/pkg/errors"
	"github.com/healthfirst/portal-api/pkg/validator"
)

type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func NewValidationErrorResponse(errs validator.FieldErrors, data interface{}) *Response {
	return &Response{
		Status:  "error",
		Message: "Please correct the highlighted fields",
		Data:    data,
		Errors:  errs,
	}
}

// BindError answers a request body that could not be decoded or failed its
// binding tags.
func BindError(c *gin.Context, err error) {
	var verrs playground.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, NewValidationErrorResponse(validator.Translate(verrs), nil))
		return
	}
	c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
}

// Error writes err with the status it maps to. data, when not nil, carries
// the current view state so the client can re-render.
func Error(c *gin.Context, err error, data interface{}) {
	var fieldErrs validator.FieldErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, NewValidationErrorResponse(fieldErrs, data))
		return
	}

	appErr := ToAppError(err)
	if appErr.Code == apperrors.ErrInternal {
		_ = c.Error(err)
	}

	resp := NewErrorResponse(appErr.Message)
	resp.Data = data
	c.JSON(appErr.HTTPStatus(), resp)
}

// ToAppError classifies domain errors.
func ToAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	message := err.Error()
	var failure *flow.Failure
	if errors.As(err, &failure) {
		message = failure.Message
	}

	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, flow.ErrSessionRequired), errors.Is(err, availability.ErrSessionRequired):
		return apperrors.NewBadRequest("portal session is required", err)
	case errors.Is(err, flow.ErrSubmissionInFlight):
		return apperrors.NewConflict("A request is already in progress. Please wait.", err)
	case errors.Is(err, flow.ErrWrongView):
		return apperrors.NewConflict("This action is not available right now.", err)
	case errors.Is(err, flow.ErrViewReleased):
		return apperrors.NewGone("This page is no longer active.", err)
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return &apperrors.AppError{Code: codeForStatus(apiErr.StatusCode), Message: message, Err: err}
		}
		return apperrors.NewBadGateway(message, err)
	case errors.Is(err, upstream.ErrNetwork):
		if failure == nil {
			message = flow.NetworkErrorMessage
		}
		return apperrors.NewBadGateway(message, err)
	case failure != nil:
		return &apperrors.AppError{Code: apperrors.ErrInternal, Message: failure.Message, Err: err}
	default:
		return apperrors.NewInternal(err)
	}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	default:
		return apperrors.ErrBadRequest
	}
}
