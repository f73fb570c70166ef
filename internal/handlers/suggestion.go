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
)

type SuggestionHandler struct {
	alertManager   services.AlertManager
	suggestionRepo repos.SuggestionRepo
}

func NewSuggestionHandler(alertManager services.AlertManager, suggestionRepo repos.SuggestionRepo) *SuggestionHandler {
	return &SuggestionHandler{alertManager: alertManager, suggestionRepo: suggestionRepo}
}

func (sh *SuggestionHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	opts := repos.ListSuggestionsOptions{Status: c.Query("status")}
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))
	opts.Offset, _ = strconv.Atoi(c.Query("offset"))

	suggestions, total, err := sh.suggestionRepo.List(c.Request.Context(), nil, rd.TenantID, opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions, "total": total})
}

type reviewSuggestionRequest struct {
	Notes string `json:"notes"`
}

func (sh *SuggestionHandler) review(c *gin.Context, approve bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	suggestionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("invalid suggestion id"))
		return
	}

	var req reviewSuggestionRequest
	_ = c.ShouldBindJSON(&req)

	review := sh.alertManager.RejectSuggestion
	if approve {
		review = sh.alertManager.ApproveSuggestion
	}
	suggestion, err := review(c.Request.Context(), nil, rd.TenantID, suggestionID, rd.PersonID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestion": suggestion})
}

func (sh *SuggestionHandler) Approve(c *gin.Context) { sh.review(c, true) }
func (sh *SuggestionHandler) Reject(c *gin.Context)  { sh.review(c, false) }
