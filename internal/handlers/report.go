package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/requestdata"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type ReportHandler struct {
	reportRepo repos.ReportRepo
}

func NewReportHandler(reportRepo repos.ReportRepo) *ReportHandler {
	return &ReportHandler{reportRepo: reportRepo}
}

func (rh *ReportHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("invalid report id"))
		return
	}

	report, err := rh.reportRepo.GetByID(c.Request.Context(), nil, rd.TenantID, reportID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

func (rh *ReportHandler) Latest(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	report, err := rh.reportRepo.Latest(c.Request.Context(), nil, rd.TenantID, types.ReportKindDailySummary)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}
