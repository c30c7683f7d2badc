package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/contacts"
	"dialer-platform/internal/dialer"
	"dialer-platform/internal/reporting"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Manager   *dialer.Manager
	Campaigns campaigns.Repository
	Queue     *contacts.Queue
	Reports   *reporting.Service
	Audit     *audit.Service

	// CountryCode is applied when normalizing imported phone numbers.
	CountryCode string
}

// headerOperator carries the self-reported operator name for the audit
// trail.
const headerOperator = "X-Operator"

// record appends to the audit trail. Best-effort: a failed append is
// logged and the request still succeeds.
func (h Handlers) record(c *gin.Context, typ audit.EventType, campaignID, message string) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.LogCommand(c.Request.Context(), typ, campaignID, c.GetHeader(headerOperator), c.ClientIP(), message)
	if err != nil {
		logger.FromGin(c).Warn("audit append failed", "type", typ, "campaign_id", campaignID, "err", err)
	}
}

// --- Campaigns ---

type createCampaignRequest struct {
	Name        string `json:"name"`
	ProductType string `json:"product_type"`
	DialingType string `json:"dialing_type"`
	CreatedBy   string `json:"created_by"`
	Notes       string `json:"notes"`
	PacingRatio int    `json:"pacing_ratio"`
	RetryCount  int    `json:"retry_count"`
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	if req.PacingRatio < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "pacing_ratio must be >= 0"})
		return
	}

	camp := campaigns.Campaign{
		ID:          uuid.NewString(),
		Name:        req.Name,
		ProductType: req.ProductType,
		DialingType: req.DialingType,
		CreatedBy:   req.CreatedBy,
		Notes:       req.Notes,
		PacingRatio: req.PacingRatio,
		RetryCount:  req.RetryCount,
		Status:      campaigns.StatusPending,
	}
	if err := h.Campaigns.Create(c.Request.Context(), camp); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign create failed"})
		return
	}
	created, err := h.Campaigns.Get(c.Request.Context(), camp.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign lookup failed"})
		return
	}
	h.record(c, audit.EventTypeCampaignCreated, camp.ID, "campaign "+camp.Name+" created")
	c.JSON(http.StatusCreated, gin.H{"campaign": created})
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	list, err := h.Campaigns.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": list})
}

func (h Handlers) GetCampaign(c *gin.Context) {
	camp, err := h.Campaigns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": camp})
}

// --- Contacts ---

type importContactsRequest struct {
	Leads []contacts.Lead `json:"leads"`
}

func (h Handlers) ImportContacts(c *gin.Context) {
	campaignID := c.Param("id")
	if _, err := h.Campaigns.Get(c.Request.Context(), campaignID); err != nil {
		h.renderError(c, err)
		return
	}

	var req importContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	n, err := h.Queue.Import(c.Request.Context(), campaignID, h.CountryCode, req.Leads)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.record(c, audit.EventTypeContactsImported, campaignID, strconv.Itoa(n)+" contacts imported")
	c.JSON(http.StatusCreated, gin.H{"message": "contacts imported", "imported": n})
}

// --- Dialer control ---

func (h Handlers) StartDialer(c *gin.Context) {
	camp, err := h.Manager.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.record(c, audit.EventTypeDialerStarted, camp.ID, "predictive dialer started")
	c.JSON(http.StatusOK, gin.H{"message": "predictive dialer started", "campaign": camp})
}

func (h Handlers) PauseDialer(c *gin.Context) {
	camp, err := h.Manager.Pause(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.record(c, audit.EventTypeDialerPaused, camp.ID, "predictive dialer paused")
	c.JSON(http.StatusOK, gin.H{"message": "predictive dialer paused", "campaign": camp})
}

func (h Handlers) ResumeDialer(c *gin.Context) {
	camp, err := h.Manager.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.record(c, audit.EventTypeDialerResumed, camp.ID, "predictive dialer resumed")
	c.JSON(http.StatusOK, gin.H{"message": "predictive dialer resumed", "campaign": camp})
}

func (h Handlers) StopDialer(c *gin.Context) {
	camp, err := h.Manager.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.record(c, audit.EventTypeDialerStopped, camp.ID, "predictive dialer stopped")
	c.JSON(http.StatusOK, gin.H{"message": "predictive dialer stopped", "campaign": camp})
}

func (h Handlers) DialerStatus(c *gin.Context) {
	camp, stats, err := h.Manager.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": camp, "stats": stats})
}

// --- Reporting ---

func (h Handlers) CampaignReport(c *gin.Context) {
	rep, err := h.Reports.CampaignReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h Handlers) AuditTrail(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"events": []audit.Event{}})
		return
	}
	events, err := h.Audit.Trail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// renderError maps service errors to HTTP statuses: unknown ids to 404,
// rejected transitions to 409, bad input to 400.
func (h Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaigns.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
	case errors.Is(err, dialer.ErrAlreadyRunning),
		errors.Is(err, dialer.ErrNotRunning),
		errors.Is(err, dialer.ErrNotPaused),
		errors.Is(err, dialer.ErrNotStoppable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, dialer.ErrNoContacts),
		errors.Is(err, dialer.ErrAllCalled),
		errors.Is(err, contacts.ErrEmptyImport):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
