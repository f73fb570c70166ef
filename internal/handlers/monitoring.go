package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/onboardhq/pulse-backend/internal/services"
)

// MonitoringHandler exposes the tier trigger endpoints called by the external
// scheduler (cron, workflow engine, manual curl during an incident).
type MonitoringHandler struct {
	scheduler services.MonitoringScheduler
}

func NewMonitoringHandler(scheduler services.MonitoringScheduler) *MonitoringHandler {
	return &MonitoringHandler{scheduler: scheduler}
}

func (mh *MonitoringHandler) TriggerContinuous(c *gin.Context) {
	result, err := mh.scheduler.RunContinuous(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}

func (mh *MonitoringHandler) TriggerHourly(c *gin.Context) {
	result, err := mh.scheduler.RunHourly(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}

func (mh *MonitoringHandler) TriggerDaily(c *gin.Context) {
	result, err := mh.scheduler.RunDaily(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}
