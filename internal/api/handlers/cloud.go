package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/chordsheet-api/internal/cloud"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/gin-gonic/gin"
)

type CloudHandler struct {
	importer *cloud.Importer
}

func NewCloudHandler(importer *cloud.Importer) *CloudHandler {
	return &CloudHandler{importer: importer}
}

// Providers lists the configured providers and whether each is signed in.
func (h *CloudHandler) Providers(c *gin.Context) {
	out := []gin.H{}
	for _, name := range h.importer.Providers() {
		p, err := h.importer.Provider(name)
		if err != nil {
			continue
		}
		out = append(out, gin.H{"name": name, "authenticated": p.IsAuthenticated()})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// Authenticate (re)checks a provider's credentials.
func (h *CloudHandler) Authenticate(c *gin.Context) {
	p, err := h.importer.Provider(c.Param("provider"))
	if err != nil {
		c.JSON(cloudStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := p.Authenticate(c.Request.Context()); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": p.Name(), "authenticated": true})
}

// Files lists chord sheets under ?prefix=.
func (h *CloudHandler) Files(c *gin.Context) {
	files, err := h.importer.List(c.Request.Context(), c.Param("provider"), c.Query("prefix"))
	if err != nil {
		c.JSON(cloudStatus(err), gin.H{"error": err.Error()})
		return
	}
	if files == nil {
		files = []cloud.File{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Import converts one file from the provider.
func (h *CloudHandler) Import(c *gin.Context) {
	var req cloud.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	req.Provider = c.Param("provider")

	out, err := h.importer.Import(c.Request.Context(), req)
	if err != nil {
		c.JSON(cloudStatus(err), gin.H{"error": err.Error(), "import": out})
		return
	}
	c.JSON(resultStatus(out.Result), out)
}

func cloudStatus(err error) int {
	switch {
	case errors.Is(err, cloud.ErrUnknownProvider), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cloud.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, cloud.ErrWouldOverwrite):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
