package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/resource"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ResourceHandler exposes the resource dispatcher over HTTP.
type ResourceHandler struct {
	*BaseHandler
	dispatcher *resource.Dispatcher
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(base *BaseHandler, dispatcher *resource.Dispatcher) *ResourceHandler {
	return &ResourceHandler{
		BaseHandler: base,
		dispatcher:  dispatcher,
	}
}

// Handle serves /{resource} and /{resource}/{id} for every verb.
func (h *ResourceHandler) Handle(c *gin.Context) {
	h.dispatch(c, c.Param("resource"), c.Param("id"))
}

// Exec serves the query form /exec?resource=...&resourceId=...
func (h *ResourceHandler) Exec(c *gin.Context) {
	var q dto.ExecQuery
	if !h.BindQuery(c, &q) {
		return
	}
	h.dispatch(c, q.Resource, q.ResourceID)
}

func (h *ResourceHandler) dispatch(c *gin.Context, name, id string) {
	req := resource.Request{
		Method:     c.Request.Method,
		Resource:   name,
		ResourceID: id,
	}
	if req.Method == http.MethodPost || req.Method == http.MethodPut {
		payload, err := h.Payload(c)
		if err != nil {
			h.Error(c, err)
			return
		}
		req.Payload = payload
	}

	resp, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(resp.Status, resp.Body)
}
