package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medifollow/care-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
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

// RespondError translates a service error into the envelope and the HTTP
// status its error code implies. Storage errors surface as a generic 500
// so datastore detail never leaks to clients.
func RespondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	message := err.Error()
	switch code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrInvalidInput:
		status = http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		status = http.StatusForbidden
	case apperrors.ErrConflict:
		status = http.StatusConflict
	default:
		message = "internal error"
	}

	c.JSON(status, NewErrorResponse(message))
}
