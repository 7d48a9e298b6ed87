// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"stockbook/internal/core/apperror"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the gin context and aborts the request.
// The response is written by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Payload returns the JSON document of a request. Form-encoded requests carry
// it in the payload field; anything else is read from the body. An empty
// payload is returned as nil.
func (h *BaseHandler) Payload(c *gin.Context) (json.RawMessage, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		var form dto.PayloadForm
		if err := c.ShouldBind(&form); err != nil {
			return nil, apperror.NewInvalidInput("invalid form body", err)
		}
		return trimmed([]byte(form.Payload)), nil
	}

	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := c.GetRawData()
	if err != nil {
		return nil, apperror.NewInvalidInput("unable to read request body", err)
	}
	return trimmed(raw), nil
}

func trimmed(raw []byte) json.RawMessage {
	if strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	return raw
}
