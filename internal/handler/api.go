package handler

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"
	"github.com/Harshanhkp24/KrishiMitra/internal/repository"
	"github.com/Harshanhkp24/KrishiMitra/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handler handles HTTP requests
type Handler struct {
	predictor *service.Predictor
	soilTypes []string
	version   string
	logger    *zap.Logger
}

// NewHandler creates a new API handler. soilTypes feeds the form's select box.
func NewHandler(predictor *service.Predictor, soilTypes []string, version string, logger *zap.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		soilTypes: soilTypes,
		version:   version,
		logger:    logger,
	}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	// HTML form
	r.GET("/", h.Form)
	r.GET("/form", h.Form)
	r.POST("/predict_form", h.PredictForm)

	// JSON or form-encoded, as the original endpoint accepted both
	r.POST("/predict", h.Predict)

	api := r.Group("/api/v1")
	{
		api.POST("/predict", h.PredictJSON)

		api.GET("/history", h.GetHistory)
		api.GET("/history/stats", h.GetHistoryStats)
		api.GET("/history/export", h.ExportHistory)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// predictPayload accepts rainfall and temperature as JSON numbers or
// numeric strings; parsing is left to the engine.
type predictPayload struct {
	SoilType    string          `json:"soil_type"`
	Rainfall    json.RawMessage `json:"rainfall"`
	Temperature json.RawMessage `json:"temperature"`
}

func (p predictPayload) request() models.PredictionRequest {
	return models.PredictionRequest{
		SoilType:    p.SoilType,
		Rainfall:    rawField(p.Rainfall),
		Temperature: rawField(p.Temperature),
	}
}

func rawField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// predictResponse is the JSON body of a successful prediction
type predictResponse struct {
	*models.PredictionResult
	HistoryError string `json:"history_error,omitempty"`
}

// Form renders the HTML form
func (h *Handler) Form(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"SoilTypes": h.soilTypes})
}

// PredictForm handles the HTML form submission
func (h *Handler) PredictForm(c *gin.Context) {
	req := models.PredictionRequest{
		SoilType:    c.PostForm("soil_type"),
		Rainfall:    c.PostForm("rainfall"),
		Temperature: c.PostForm("temperature"),
	}

	result, err := h.predictor.PredictAndRecord(c.Request.Context(), req)
	data := gin.H{"SoilTypes": h.soilTypes}
	status := http.StatusOK

	switch {
	case err == nil:
		data["Result"] = result
	case result != nil:
		h.logHistoryFailure(c, err)
		data["Result"] = result
		data["Notice"] = "Prediction not saved to history."
	default:
		h.logPredictFailure(c, err)
		status = statusFor(err)
		data["Error"] = err.Error()
	}

	c.HTML(status, "index.html", data)
}

// Predict serves JSON clients and plain form posts on the same path
func (h *Handler) Predict(c *gin.Context) {
	if c.ContentType() == gin.MIMEJSON {
		h.PredictJSON(c)
		return
	}

	req := models.PredictionRequest{
		SoilType:    c.PostForm("soil_type"),
		Rainfall:    c.PostForm("rainfall"),
		Temperature: c.PostForm("temperature"),
	}
	result, err := h.predictor.PredictAndRecord(c.Request.Context(), req)
	if err != nil && result == nil {
		h.logPredictFailure(c, err)
		h.writeError(c, err)
		return
	}
	if err != nil {
		h.logHistoryFailure(c, err)
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte("<h2>Predicted Crop: "+template.HTMLEscapeString(result.PredictedCrop)+"</h2>"))
}

// PredictJSON handles JSON prediction requests
func (h *Handler) PredictJSON(c *gin.Context) {
	var payload predictPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body: " + err.Error(), "kind": "malformed_input"})
		return
	}

	result, err := h.predictor.PredictAndRecord(c.Request.Context(), payload.request())
	if err != nil && result == nil {
		h.logPredictFailure(c, err)
		h.writeError(c, err)
		return
	}

	resp := predictResponse{PredictionResult: result}
	if err != nil {
		h.logHistoryFailure(c, err)
		resp.HistoryError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistory returns every recorded prediction
func (h *Handler) GetHistory(c *gin.Context) {
	records, err := h.predictor.ListHistory(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read history", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": records,
		"total":   len(records),
	})
}

// GetHistoryStats returns per-crop totals
func (h *Handler) GetHistoryStats(c *gin.Context) {
	stats, err := h.predictor.HistoryStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get history stats", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportHistory streams the history as a CSV download
func (h *Handler) ExportHistory(c *gin.Context) {
	records, err := h.predictor.ListHistory(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export history", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=prediction_history.csv")
	c.Status(http.StatusOK)

	if err := repository.WriteCSV(c.Writer, records); err != nil {
		h.logger.Error("Failed to write CSV export", zap.Error(err))
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "krishimitra",
		"model_version": h.version,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": kindOf(err)}
	var perr *models.PredictionError
	if errors.As(err, &perr) && models.IsRequestError(err) {
		body["field"] = perr.Field
		body["value"] = perr.Value
	}
	c.JSON(statusFor(err), body)
}

func (h *Handler) logPredictFailure(c *gin.Context, err error) {
	log := h.logger.Info
	if !models.IsRequestError(err) {
		log = h.logger.Error
	}
	log("Prediction failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("kind", kindOf(err)),
		zap.Error(err))
}

func (h *Handler) logHistoryFailure(c *gin.Context, err error) {
	h.logger.Warn("Prediction served without history",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
}

func statusFor(err error) int {
	if models.IsRequestError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, models.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, models.ErrInvalidSoilType):
		return "invalid_soil_type"
	case errors.Is(err, models.ErrUnknownClassCode):
		return "unknown_class_code"
	case errors.Is(err, models.ErrPersistence):
		return "persistence"
	case errors.Is(err, models.ErrArtifactLoad):
		return "artifact_load"
	default:
		return strings.ToLower(http.StatusText(http.StatusInternalServerError))
	}
}
