package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/biodash/vitals-api/pkg/errors"
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

// RespondError maps an application error onto the wire. Unknown error types
// are reported as opaque internal errors so nothing leaks.
func RespondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		resp := NewErrorResponse(appErr.Message)
		resp.Data = appErr.Details
		c.JSON(appErr.HTTPStatus(), resp)
		return
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}
