package worker

import (
	"github.com/spec-kit/clarification-service/internal/events"
	"github.com/spec-kit/clarification-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartReportCacheWorker registers summary cache invalidation handlers.
func StartReportCacheWorker(reportService *service.ReportService, dispatcher events.Dispatcher) {
	if reportService == nil {
		return
	}
	reportService.RegisterHandlers(dispatcher)
}
