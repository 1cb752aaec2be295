package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/chordsheet-api/internal/api/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/logger"
	"github.com/Conceptual-Machines/chordsheet-api/internal/services"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/gin-gonic/gin"
)

type ConvertHandler struct {
	engine  *engine.Engine
	history *services.HistoryService
}

func NewConvertHandler(e *engine.Engine, history *services.HistoryService) *ConvertHandler {
	return &ConvertHandler{engine: e, history: history}
}

type DetectRequest struct {
	Input string `json:"input" binding:"required"`
}

type TransposeRequest struct {
	Input        string      `json:"input" binding:"required"`
	Format       song.Format `json:"format,omitempty"`
	FromKey      string      `json:"from_key" binding:"required"`
	ToKey        string      `json:"to_key" binding:"required"`
	RecoveryMode string      `json:"recovery_mode,omitempty"`
}

type FormatInfo struct {
	ID        song.Format `json:"id"`
	Extension string      `json:"extension,omitempty"`
}

// Convert runs the full pipeline. Line errors keep a 200; a result that
// produced no output is 400 when the request was malformed and 422
// otherwise.
func (h *ConvertHandler) Convert(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.engine.Convert(c.Request.Context(), req)
	h.record(c, res)
	c.JSON(resultStatus(res), res)
}

// Detect ranks the dialects for the input.
func (h *ConvertHandler) Detect(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.DetectFormat(req.Input))
}

// Parse returns the canonical model without rendering.
func (h *ConvertHandler) Parse(c *gin.Context) {
	var req engine.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, format, err := h.engine.Parse(req)
	if err != nil {
		ce := converr.From(err)
		c.JSON(errorStatus(ce), gin.H{"error": ce.Message, "details": ce})
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"success":  res.Success,
		"format":   format,
		"model":    res.Model,
		"errors":   res.Errors,
		"warnings": res.Warnings,
	})
}

// Transpose changes key and renders back into the source dialect.
func (h *ConvertHandler) Transpose(c *gin.Context) {
	var req TransposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := req.Format
	if format == "" {
		detected := h.engine.DetectFormat(req.Input)
		if detected.Confidence == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "could not detect the chord sheet format",
				"candidates": detected.Candidates,
			})
			return
		}
		format = detected.Format
	}

	res := h.engine.Convert(c.Request.Context(), engine.Request{
		Input:        req.Input,
		SourceFormat: format,
		TargetFormat: format,
		FromKey:      req.FromKey,
		ToKey:        req.ToKey,
		RecoveryMode: req.RecoveryMode,
	})
	h.record(c, res)
	c.JSON(resultStatus(res), res)
}

// Formats lists the dialect ids in declaration order.
func (h *ConvertHandler) Formats(c *gin.Context) {
	formats := h.engine.Formats()
	out := make([]FormatInfo, 0, len(formats))
	for _, f := range formats {
		out = append(out, FormatInfo{ID: f, Extension: f.FileExtension()})
	}
	c.JSON(http.StatusOK, gin.H{"formats": out, "default": song.DefaultFormat})
}

// record writes history when a database is configured. Failures are
// logged and never fail the request.
func (h *ConvertHandler) record(c *gin.Context, res engine.Result) {
	if !h.history.Enabled() {
		return
	}
	if _, err := h.history.Record(middleware.CurrentUserID(c), res); err != nil {
		logger.Error("Failed to record conversion history", err, logger.Fields{
			"request_id":    c.GetString("request_id"),
			"conversion_id": res.Metadata.RequestID,
		})
	}
}

func resultStatus(res engine.Result) int {
	if res.Success {
		return http.StatusOK
	}
	if res.Metadata.FailedStage == engine.StageValidate {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// errorStatus maps a request-level error to a status. Fatal errors mean
// the request itself was unusable.
func errorStatus(ce *converr.ConversionError) int {
	if ce == nil {
		return http.StatusInternalServerError
	}
	if !ce.Recoverable {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}
