package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/requestdata"
	"github.com/onboardhq/pulse-backend/internal/services"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type AlertHandler struct {
	alertManager services.AlertManager
}

func NewAlertHandler(alertManager services.AlertManager) *AlertHandler {
	return &AlertHandler{alertManager: alertManager}
}

func (ah *AlertHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	// resolved alerts are hidden unless asked for explicitly
	status := c.Query("status")
	switch status {
	case "":
		status = types.AlertStatusActive
	case "all":
		status = ""
	}

	opts := repos.ListAlertsOptions{
		Severity: c.Query("severity"),
		Status:   status,
	}
	if raw := c.Query("person_id"); raw != "" {
		personID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("invalid person_id"))
			return
		}
		opts.PersonID = &personID
	}
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))
	opts.Offset, _ = strconv.Atoi(c.Query("offset"))

	alerts, total, err := ah.alertManager.List(c.Request.Context(), nil, rd.TenantID, opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"alerts": alerts, "total": total})
}

func (ah *AlertHandler) Resolve(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("invalid alert id"))
		return
	}

	// body is optional
	var body struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&body)

	alert, err := ah.alertManager.Resolve(c.Request.Context(), nil, rd.TenantID, alertID, rd.PersonID, body.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"alert": alert})
}
