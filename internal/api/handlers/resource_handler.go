package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/backend/internal/interceptor"
)

// MaxBodyBytes caps request bodies on write endpoints.
const MaxBodyBytes = 1 << 20

// ResourceHandler exposes CRUD for every fleet resource. Writes go through
// the store it is given, normally an interceptor.GuardedStore.
type ResourceHandler struct {
	store interceptor.Store
	known map[string]struct{}
}

// NewResourceHandler serves the named resources. Other names get a 404
// before the store, and so the guard, sees the request.
func NewResourceHandler(store interceptor.Store, resources []string) *ResourceHandler {
	known := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		known[r] = struct{}{}
	}
	return &ResourceHandler{store: store, known: known}
}

// KnownResource aborts with 404 for names the handler does not serve.
func (h *ResourceHandler) KnownResource(c *gin.Context) {
	if _, ok := h.known[c.Param("resource")]; !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
		return
	}
	c.Next()
}

func (h *ResourceHandler) List(c *gin.Context) {
	items, err := h.store.List(c.Request.Context(), c.Param("resource"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ResourceHandler) Get(c *gin.Context) {
	item, err := h.store.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler) Create(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	item, err := h.store.Create(c.Request.Context(), c.Param("resource"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ResourceHandler) Update(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	item, err := h.store.Update(c.Request.Context(), c.Param("resource"), c.Param("id"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("resource"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindObject reads a JSON object body. It writes the 400 itself.
func bindObject(c *gin.Context) (map[string]any, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return nil, false
	}
	return body, true
}
