package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/feed"
	"github.com/shenikar/event_rescue/internal/lostfound"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/shenikar/event_rescue/internal/service"
	"github.com/sirupsen/logrus"
)

const maxImageBytes = 10 << 20

// PushServer обслуживает WebSocket-подключения к живой ленте
type PushServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	incidentService  service.IncidentService
	lostFoundService service.LostFoundService
	push             PushServer
	metricsHandler   http.Handler
	logger           *logrus.Logger
	validate         *validator.Validate
	cfg              *config.Config
}

// HandlerOption настраивает Handler
type HandlerOption func(*Handler)

// WithPushServer подключает маршрут /ws
func WithPushServer(p PushServer) HandlerOption {
	return func(h *Handler) { h.push = p }
}

// WithMetricsHandler подключает маршрут /metrics
func WithMetricsHandler(m http.Handler) HandlerOption {
	return func(h *Handler) { h.metricsHandler = m }
}

func NewHandler(incidentService service.IncidentService, lostFoundService service.LostFoundService, logger *logrus.Logger, cfg *config.Config, opts ...HandlerOption) *Handler {
	h := &Handler{
		incidentService:  incidentService,
		lostFoundService: lostFoundService,
		logger:           logger,
		validate:         validator.New(),
		cfg:              cfg,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// @Summary Get the live incident feed
// @Description Get the bounded live feed, newest first. Requires API key.
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} IncidentListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	incidents := h.incidentService.ListIncidents(c.Request.Context())
	c.JSON(http.StatusOK, ModelsToIncidentList(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident from the feed or the archive. Requires API key.
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err, "Failed to get incident from service")
		return
	}
	c.JSON(http.StatusOK, IncidentResponse{Incident: incident})
}

// @Summary Add an incident
// @Description Add an incident produced manually or by a device. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body AddIncidentRequest true "Incident"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/add [post]
func (h *Handler) addIncident(c *gin.Context) {
	log := h.logger.WithField("method", "addIncident")

	data, err := c.GetRawData()
	if err != nil {
		log.WithError(err).Warn("Failed to read request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	payload, err := h.decodeManual(data)
	if err != nil {
		log.WithError(err).Warn("Failed to decode incident")
		if errors.Is(err, normalizer.ErrMalformed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.Ingest(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, log, err, "Failed to add incident in service")
		return
	}
	c.JSON(http.StatusCreated, IncidentResponse{Incident: incident})
}

// @Summary Add incidents in bulk
// @Description Add several incidents. A bad record is reported and does not block the rest. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incidents body []AddIncidentRequest true "Incidents"
// @Success 200 {object} BatchResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /incidents/batch [post]
func (h *Handler) addIncidents(c *gin.Context) {
	var records []json.RawMessage
	log := h.logger.WithField("method", "addIncidents")

	if err := c.ShouldBindJSON(&records); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var errs []string
	payloads := make([]normalizer.Payload, 0, len(records))
	for i, rec := range records {
		p, err := h.decodeManual(rec)
		if err != nil {
			errs = append(errs, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		payloads = append(payloads, p)
	}

	incidents, err := h.incidentService.IngestBatch(c.Request.Context(), payloads)
	if err != nil {
		log.WithError(err).Warn("Some records were rejected")
		errs = append(errs, err.Error())
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	c.JSON(http.StatusOK, BatchResponse{Incidents: incidents, Errors: errs})
}

// @Summary Update incident status
// @Description Move an incident forward through active, acknowledged, resolved. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Status regression"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bindAndValidate(c, log, &input) {
		return
	}

	incident, err := h.incidentService.UpdateStatus(c.Request.Context(), id, models.Status(input.Status))
	if err != nil {
		h.respondError(c, log, err, "Failed to update incident status in service")
		return
	}
	c.JSON(http.StatusOK, IncidentResponse{Incident: incident})
}

// @Summary Submit a voice alert
// @Description Submit a distress alert from the audio detector of a participant device. Requires API key.
// @Tags Voice
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param alert body VoiceAlertRequest true "Voice alert"
// @Success 200 {object} VoiceAlertResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /voice-alert [post]
func (h *Handler) voiceAlert(c *gin.Context) {
	var input VoiceAlertRequest
	log := h.logger.WithField("method", "voiceAlert")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	incident, err := h.incidentService.SubmitVoiceAlert(c.Request.Context(), DTOToVoiceSubmission(input))
	if err != nil {
		h.respondError(c, log, err, "Failed to submit voice alert")
		return
	}
	c.JSON(http.StatusOK, VoiceAlertResponse{Status: "received", AlertID: incident.ID, Incident: incident})
}

// @Summary Dispatch a response team
// @Description Queue a dispatch event for an incident. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body DispatchRequest true "Incident to dispatch"
// @Success 202 {object} DispatchResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 503 {object} map[string]string "Dispatch queue is not configured"
// @Router /dispatch [post]
func (h *Handler) dispatchTeam(c *gin.Context) {
	var input DispatchRequest
	log := h.logger.WithField("method", "dispatchTeam")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	event, err := h.incidentService.Dispatch(c.Request.Context(), input.IncidentID)
	if err != nil {
		h.respondError(c, log, err, "Failed to dispatch team")
		return
	}
	c.JSON(http.StatusAccepted, DispatchResponse{Status: "dispatched", Event: event})
}

// @Summary Get the feed summary
// @Description Get a short text digest of the live feed. Requires API key.
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} SummaryResponse
// @Router /summary [get]
func (h *Handler) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, SummaryResponse{Summary: h.incidentService.Summary(c.Request.Context())})
}

// @Summary List lost-and-found reports
// @Description List lost-and-found reports, newest first. Requires API key.
// @Tags LostFound
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} LostFoundListResponse
// @Router /lostfound [get]
func (h *Handler) listLostFound(c *gin.Context) {
	items := h.lostFoundService.List(c.Request.Context())
	if items == nil {
		items = []models.LostFoundItem{}
	}
	c.JSON(http.StatusOK, LostFoundListResponse{Items: items})
}

// @Summary Report a lost item or person
// @Description Register a lost-and-found report. Requires API key.
// @Tags LostFound
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param reporter formData string true "Reporter"
// @Param description formData string false "Description"
// @Param image formData file false "Photo"
// @Success 201 {object} LostFoundReportResponse
// @Failure 400 {object} map[string]string "Missing reporter"
// @Router /lostfound/report [post]
func (h *Handler) reportLostFound(c *gin.Context) {
	log := h.logger.WithField("method", "reportLostFound")

	imageRef := ""
	if file, err := c.FormFile("image"); err == nil {
		imageRef = file.Filename
	}

	item, err := h.lostFoundService.Report(c.Request.Context(), c.PostForm("reporter"), c.PostForm("description"), imageRef)
	if err != nil {
		h.respondError(c, log, err, "Failed to report lost-and-found item")
		return
	}
	c.JSON(http.StatusCreated, LostFoundReportResponse{Status: item.Status, Item: item})
}

// @Summary Match a photo against lost-and-found reports
// @Description Forward a photo to the matching service. Requires API key.
// @Tags LostFound
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "Photo"
// @Success 200 {object} MatchResponse
// @Failure 400 {object} map[string]string "Missing image"
// @Failure 502 {object} map[string]string "Matching service error"
// @Failure 503 {object} map[string]string "Matching service is not configured"
// @Router /lostfound/match [post]
func (h *Handler) matchLostFound(c *gin.Context) {
	log := h.logger.WithField("method", "matchLostFound")

	image, ok := h.readImage(c, log)
	if !ok {
		return
	}

	matches, err := h.lostFoundService.Match(c.Request.Context(), image)
	if err != nil {
		h.respondError(c, log, err, "Failed to match image")
		return
	}
	if matches == nil {
		matches = []models.MatchCandidate{}
	}
	c.JSON(http.StatusOK, MatchResponse{Matches: matches})
}

// @Summary Start a camera
// @Description Ask the vision service to start watching a zone. Requires API key.
// @Tags Camera
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CameraStartRequest true "Camera"
// @Success 200 {object} CameraResponse
// @Failure 503 {object} map[string]string "Vision service is not configured"
// @Router /camera/start [post]
func (h *Handler) startCamera(c *gin.Context) {
	var input CameraStartRequest
	log := h.logger.WithField("method", "startCamera")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	status, err := h.incidentService.StartCamera(c.Request.Context(), input.Zone, input.Source)
	if err != nil {
		h.respondError(c, log, err, "Failed to start camera")
		return
	}
	c.JSON(http.StatusOK, CameraResponse{Status: status.Status, Zone: status.Zone})
}

// @Summary Stop a camera
// @Description Ask the vision service to stop watching a zone. Requires API key.
// @Tags Camera
// @Produce json
// @Security ApiKeyAuth
// @Param zone path string true "Zone"
// @Success 200 {object} CameraResponse
// @Failure 503 {object} map[string]string "Vision service is not configured"
// @Router /camera/stop/{zone} [post]
func (h *Handler) stopCamera(c *gin.Context) {
	zone := c.Param("zone")
	log := h.logger.WithField("method", "stopCamera").WithField("zone", zone)

	status, err := h.incidentService.StopCamera(c.Request.Context(), zone)
	if err != nil {
		h.respondError(c, log, err, "Failed to stop camera")
		return
	}
	c.JSON(http.StatusOK, CameraResponse{Status: status.Status, Zone: status.Zone})
}

// @Summary Analyze a camera frame
// @Description Forward a frame to the vision service; fire or smoke becomes an incident. Requires API key.
// @Tags Camera
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "Frame"
// @Param zone formData string false "Zone"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} map[string]string "Missing image"
// @Failure 502 {object} map[string]string "Vision service error"
// @Failure 503 {object} map[string]string "Vision service is not configured"
// @Router /camera/analyze [post]
func (h *Handler) analyzeFrame(c *gin.Context) {
	log := h.logger.WithField("method", "analyzeFrame")

	image, ok := h.readImage(c, log)
	if !ok {
		return
	}

	analysis, incident, err := h.incidentService.AnalyzeFrame(c.Request.Context(), image, c.PostForm("zone"))
	if err != nil {
		h.respondError(c, log, err, "Failed to analyze frame")
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{Status: "success", Analysis: analysis, Incident: incident})
}

// @Summary Subscribe to the live feed
// @Description Upgrade to a WebSocket that receives every stored incident.
// @Tags Push
// @Success 101 "Switching Protocols"
// @Router /ws [get]
func (h *Handler) serveWS(c *gin.Context) {
	h.push.ServeWS(c.Writer, c.Request)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) bindAndValidate(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// decodeManual разбирает запись терпимо: поле неверного типа получает значение
// по умолчанию, после чего запись проверяется валидатором.
func (h *Handler) decodeManual(data []byte) (normalizer.ManualPayload, error) {
	raw, err := normalizer.DecodeRaw(normalizer.SourceManual, data)
	if err != nil {
		return normalizer.ManualPayload{}, err
	}
	payload, _ := raw.(normalizer.ManualPayload)
	if err := h.validate.Struct(ManualPayloadToDTO(payload)); err != nil {
		return normalizer.ManualPayload{}, err
	}
	return payload, nil
}

func (h *Handler) readImage(c *gin.Context, log *logrus.Entry) ([]byte, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		log.WithError(err).Warn("Image is missing")
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return nil, false
	}
	f, err := file.Open()
	if err != nil {
		log.WithError(err).Error("Failed to open uploaded image")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		log.WithError(err).Error("Failed to read uploaded image")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
		return nil, false
	}
	if len(data) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is too large"})
		return nil, false
	}
	return data, true
}

// respondError отображает ошибку сервиса в HTTP-ответ
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error, msg string) {
	switch {
	case errors.Is(err, normalizer.ErrMalformed), errors.Is(err, normalizer.ErrUnknownType),
		errors.Is(err, lostfound.ErrMissingReporter):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIncidentNotFound), errors.Is(err, feed.ErrNotFound):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, models.ErrStatusRegression):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDispatchDisabled), errors.Is(err, service.ErrVisionDisabled),
		errors.Is(err, service.ErrMatcherDisabled):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUpstream):
		log.WithError(err).Error(msg)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service error"})
	default:
		log.WithError(err).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
