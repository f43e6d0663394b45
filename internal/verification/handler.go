package verification

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

type Handler struct {
	service *Service
	broker  *Broker
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// WithBroker enables the server-sent timeline stream
func (h *Handler) WithBroker(b *Broker) *Handler {
	h.broker = b
	return h
}

// RegisterRoutes expects rg to be behind auth.Middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	props := rg.Group("/properties")
	{
		props.POST("", auth.RequireRole(auth.RoleSeller), h.Submit)
		props.GET("", auth.RequireRole(auth.RoleSeller), h.ListMine)
		props.GET("/:id", h.Get)
		props.GET("/:id/timeline", h.Timeline)
		props.GET("/:id/activity", h.Activity)
		props.GET("/:id/events", h.Events)
		props.POST("/:id/analyze", auth.RequireRole(auth.RoleSeller), h.TriggerAnalysis)
		props.POST("/:id/confirm", auth.RequireRole(auth.RoleSeller), h.Confirm)
		props.POST("/:id/pay", auth.RequireRole(auth.RoleSeller), h.Pay)
		props.POST("/:id/inspection", auth.RequireRole(auth.RoleSeller), h.ScheduleInspection)
	}

	admin := rg.Group("/admin/properties")
	{
		admin.POST("/:id/approve", auth.RequireRole(auth.RoleAdmin), h.Approve)
		admin.POST("/:id/reject", auth.RequireRole(auth.RoleAdmin), h.Reject)
		admin.POST("/:id/inspector", auth.RequireRole(auth.RoleAdmin), h.AssignInspector)
		admin.POST("/:id/inspection/complete", auth.RequireRole(auth.RoleAdmin, auth.RoleInspector), h.CompleteInspection)
	}

	system := rg.Group("/system/properties", auth.RequireRole(auth.RoleSystem))
	{
		system.POST("/:id/analysis", h.CompleteAnalysis)
		system.POST("/:id/analysis/failure", h.FailAnalysis)
		system.POST("/:id/payment", h.ConfirmPayment)
	}
}

// HTTPStatus maps service errors onto response codes
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, workflows.ErrIllegalTransition), errors.Is(err, workflows.ErrTerminalState),
		errors.Is(err, ErrStaleRecord):
		return http.StatusConflict
	case errors.Is(err, workflows.ErrPreconditionUnmet):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// RespondError writes err with the mapped status code
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	code := HTTPStatus(err)
	if code == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	body := gin.H{"error": err.Error()}
	var te *workflows.TransitionError
	if errors.As(err, &te) {
		body["status"] = te.Status
		body["action"] = te.Action
	}
	c.JSON(code, body)
}

// ParamID parses the :id path parameter
func ParamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the body into dst when one is sent. An empty body
// is allowed; a malformed one is answered with 400.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func actor(c *gin.Context) auth.Actor {
	a, _ := auth.ActorFrom(c)
	return a
}

// visible loads the record and hides it from sellers who do not own it
func (h *Handler) visible(c *gin.Context) (*Record, bool) {
	id, ok := ParamID(c)
	if !ok {
		return nil, false
	}
	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return nil, false
	}
	a := actor(c)
	if a.Is(auth.RoleSeller) && rec.SellerID != a.ID {
		RespondError(c, h.logger, ErrNotFound)
		return nil, false
	}
	return rec, true
}

func (h *Handler) respond(c *gin.Context, out *Outcome, err error) {
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	view, err := h.service.project(out.Record)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property":   view,
		"changed":    out.Step.Changed(),
		"no_op":      out.Step.NoOp,
		"log_entry":  out.Entry,
		"new_status": out.Record.Status,
	})
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.service.Submit(c.Request.Context(), actor(c), req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	view, err := h.service.project(rec)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) ListMine(c *gin.Context) {
	recs, err := h.service.ListBySeller(c.Request.Context(), actor(c).ID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": recs, "count": len(recs)})
}

func (h *Handler) Get(c *gin.Context) {
	rec, ok := h.visible(c)
	if !ok {
		return
	}
	view, err := h.service.project(rec)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Timeline(c *gin.Context) {
	rec, ok := h.visible(c)
	if !ok {
		return
	}
	tl, err := workflows.ProjectTimeline(rec.Status, rec.RejectedFrom)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}

// Events streams timeline updates as server-sent events, starting with
// the current timeline
func (h *Handler) Events(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event stream disabled"})
		return
	}
	id, ok := ParamID(c)
	if !ok {
		return
	}
	// subscribe before loading so no transition falls between the two
	events, cancel := h.broker.Subscribe(id)
	defer cancel()

	rec, ok := h.visible(c)
	if !ok {
		return
	}
	tl, err := workflows.ProjectTimeline(rec.Status, rec.RejectedFrom)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.SSEvent("timeline", tl)
	c.Writer.Flush()
	if rec.Status.IsTerminal() {
		return
	}
	shown, _ := workflows.Rank(rec.Status)
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			// events queued before the load may already be reflected
			if r, err := workflows.Rank(evt.To); err == nil && r <= shown {
				return true
			}
			shown, _ = workflows.Rank(evt.To)
			c.SSEvent("timeline", evt.Timeline)
			return !evt.To.IsTerminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) Activity(c *gin.Context) {
	rec, ok := h.visible(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": LatestActivity(rec.Activity(), limit)})
}

func (h *Handler) TriggerAnalysis(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	out, err := h.service.TriggerAnalysis(c.Request.Context(), id, actor(c))
	h.respond(c, out, err)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.Confirm(c.Request.Context(), id, actor(c), req)
	h.respond(c, out, err)
}

func (h *Handler) Pay(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.Pay(c.Request.Context(), id, actor(c), req)
	h.respond(c, out, err)
}

func (h *Handler) ScheduleInspection(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.ScheduleInspection(c.Request.Context(), id, actor(c), req)
	h.respond(c, out, err)
}

type notesRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req notesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.service.Approve(c.Request.Context(), id, actor(c), req.Notes)
	h.respond(c, out, err)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.Reject(c.Request.Context(), id, actor(c), req.Reason)
	h.respond(c, out, err)
}

func (h *Handler) AssignInspector(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req struct {
		InspectorName string `json:"inspector_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.AssignInspector(c.Request.Context(), id, actor(c), req.InspectorName)
	h.respond(c, out, err)
}

func (h *Handler) CompleteInspection(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req InspectionResult
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.CompleteInspection(c.Request.Context(), id, actor(c), req)
	h.respond(c, out, err)
}

func (h *Handler) CompleteAnalysis(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req struct {
		AIMetrics
		Attempt int `json:"attempt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.service.CompleteAnalysis(c.Request.Context(), id, actor(c), req.Attempt, req.AIMetrics)
	h.respond(c, out, err)
}

func (h *Handler) FailAnalysis(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req struct {
		Reason  string `json:"reason"`
		Attempt int    `json:"attempt"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "analysis service reported a failure"
	}
	out, err := h.service.FailAnalysis(c.Request.Context(), id, actor(c), req.Attempt, req.Reason)
	h.respond(c, out, err)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	id, ok := ParamID(c)
	if !ok {
		return
	}
	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.service.ConfirmPayment(c.Request.Context(), id, actor(c), req.PaymentID)
	h.respond(c, out, err)
}
