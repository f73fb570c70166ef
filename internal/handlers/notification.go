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

type NotificationHandler struct {
	dispatcher services.NotificationDispatcher
}

func NewNotificationHandler(dispatcher services.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

func (nh *NotificationHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	opts := repos.ListNotificationsOptions{
		Type:       c.Query("type"),
		UnreadOnly: c.Query("unread_only") == "true",
	}
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))
	opts.Offset, _ = strconv.Atoi(c.Query("offset"))

	notifications, total, err := nh.dispatcher.List(c.Request.Context(), nil, rd.PersonID, opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	meta := map[string]services.NotificationMeta{}
	for _, n := range notifications {
		if _, ok := meta[n.Type]; !ok {
			meta[n.Type] = nh.dispatcher.Meta(n.Type)
		}
	}
	RespondOK(c, gin.H{"notifications": notifications, "total": total, "meta": meta})
}

func (nh *NotificationHandler) UnreadCount(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	count, err := nh.dispatcher.UnreadCount(c.Request.Context(), nil, rd.PersonID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"unread": count})
}

func (nh *NotificationHandler) MarkRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("invalid notification id"))
		return
	}

	updated, err := nh.dispatcher.MarkRead(c.Request.Context(), nil, rd.PersonID, notificationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": updated})
}

func (nh *NotificationHandler) MarkAllRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	updated, err := nh.dispatcher.MarkAllRead(c.Request.Context(), nil, rd.PersonID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": updated})
}
