package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService      service.RequestService
	treatmentService    service.TreatmentService
	budgetService       service.BudgetService
	notificationService service.NotificationService
	logger              Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requestService service.RequestService,
	treatmentService service.TreatmentService,
	budgetService service.BudgetService,
	notificationService service.NotificationService,
	logger Logger,
) *Handlers {
	return &Handlers{
		requestService:      requestService,
		treatmentService:    treatmentService,
		budgetService:       budgetService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable error code and a human message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DecideRequest is the body of a decision call
type DecideRequest struct {
	Action  string `json:"accion" binding:"required"`
	Comment string `json:"comentario"`
}

// CancelRequest is the body of a cancellation request
type CancelRequest struct {
	Reason string `json:"motivo"`
}

// RejectRequest is the body of a treatment rejection
type RejectRequest struct {
	Motive string `json:"motivo" binding:"required"`
}

// TreatmentItemsRequest is the body of a treatment items upsert
type TreatmentItemsRequest struct {
	Items []service.DecisionInput `json:"items" binding:"required"`
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeStateConflict:
		return http.StatusConflict
	case apperr.CodeBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response derived from the application error code
func (h *Handlers) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorBody{Code: string(code), Message: err.Error()},
	})
}

func (h *Handlers) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   &ErrorBody{Code: string(apperr.CodeValidation), Message: "invalid id"},
		})
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /healthz
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// CreateDraft handles POST /api/solicitudes/drafts
func (h *Handlers) CreateDraft(c *gin.Context) {
	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.CreateDraft(c.Request.Context(), actor(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, req)
}

// UpdateDraft handles PATCH /api/solicitudes/:id/draft
func (h *Handlers) UpdateDraft(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.UpdateDraft(c.Request.Context(), actor(c).ID, id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// Submit handles PUT /api/solicitudes/:id
func (h *Handlers) Submit(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.Submit(c.Request.Context(), actor(c), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// CreateAndSubmit handles POST /api/solicitudes
func (h *Handlers) CreateAndSubmit(c *gin.Context) {
	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.CreateAndSubmit(c.Request.Context(), actor(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, req)
}

// ListRequests handles GET /api/solicitudes
func (h *Handlers) ListRequests(c *gin.Context) {
	requests, err := h.requestService.ListByOwner(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, requests)
}

// GetRequest handles GET /api/solicitudes/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// Decide handles POST /api/solicitudes/:id/decidir
func (h *Handlers) Decide(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body DecideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.Decide(c.Request.Context(), actor(c), id, body.Action, body.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// Claim handles PATCH /api/solicitudes/:id/tomar
func (h *Handlers) Claim(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	req, err := h.treatmentService.Claim(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// Release handles PATCH /api/solicitudes/:id/liberar
func (h *Handlers) Release(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	req, err := h.treatmentService.Release(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// ListTreatment handles GET /api/solicitudes/:id/tratamiento
func (h *Handlers) ListTreatment(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	decisions, err := h.treatmentService.ListDecisions(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, decisions)
}

// UpsertTreatment handles PATCH /api/solicitudes/:id/tratamiento/items
func (h *Handlers) UpsertTreatment(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body TreatmentItemsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.treatmentService.UpsertDecisions(c.Request.Context(), actor(c), id, body.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// FinalizeTreatment handles POST /api/solicitudes/:id/finalizar
func (h *Handlers) FinalizeTreatment(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	req, err := h.treatmentService.Finalize(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// RejectTreatment handles POST /api/solicitudes/:id/rechazar
func (h *Handlers) RejectTreatment(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.treatmentService.Reject(c.Request.Context(), actor(c), id, body.Motive)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// RequestCancel handles PATCH /api/solicitudes/:id/cancel
func (h *Handlers) RequestCancel(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body CancelRequest
	_ = c.ShouldBindJSON(&body)

	req, err := h.requestService.RequestCancel(c.Request.Context(), actor(c).ID, id, body.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// DecideCancel handles POST /api/solicitudes/:id/decidir_cancelacion
func (h *Handlers) DecideCancel(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body DecideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	req, err := h.requestService.DecideCancel(c.Request.Context(), actor(c), id, body.Action, body.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// RequestIncrease handles POST /api/presupuestos/incorporaciones
func (h *Handlers) RequestIncrease(c *gin.Context) {
	var input service.IncreaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	inc, err := h.budgetService.RequestIncrease(c.Request.Context(), actor(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, inc)
}

// ResolveIncrease handles POST /api/presupuestos/incorporaciones/:id/resolver
func (h *Handlers) ResolveIncrease(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}
	var body DecideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	inc, err := h.budgetService.ResolveIncrease(c.Request.Context(), actor(c), id, body.Action, body.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, inc)
}

// ListIncreases handles GET /api/presupuestos/incorporaciones
func (h *Handlers) ListIncreases(c *gin.Context) {
	increases, err := h.budgetService.ListIncreases(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, increases)
}

// GetLedger handles GET /api/presupuestos/saldo
func (h *Handlers) GetLedger(c *gin.Context) {
	centro := c.Query("centro")
	sector := c.Query("sector")
	if centro == "" {
		h.fail(c, apperr.Validation("centro query parameter is required"))
		return
	}

	entry, err := h.budgetService.GetLedger(c.Request.Context(), centro, sector)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, entry)
}

// ListNotifications handles GET /api/notificaciones
func (h *Handlers) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("no_leidas") == "1" || c.Query("no_leidas") == "true"

	notifications, err := h.notificationService.List(c.Request.Context(), actor(c).ID, unreadOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, notifications)
}

// MarkNotificationRead handles PATCH /api/notificaciones/:id/leida
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, valid := requestID(c)
	if !valid {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"id": id, "leida": true})
}
