package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
	svcframework "github.com/praxy-health/zkid-service/pkg/service/framework"
)

type GetReadinessResponse struct {
	// Overall status of the zkID service.
	Status svcframework.Status `json:"status"`

	// A map from service names to service statuses.
	ServiceStatuses map[svcframework.Type]svcframework.Status `json:"serviceStatuses"`
}

// Readiness godoc
//
// @Summary     Readiness
// @Description Readiness runs a number of application specific checks to see if all the
// @Description relied upon services are healthy.
// @Tags        HealthCheck
// @Accept      json
// @Produce     json
// @Success     200 {object} GetReadinessResponse
// @Router      /readiness [get]
func Readiness(services []svcframework.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		readyServices := 0
		statuses := make(map[svcframework.Type]svcframework.Status, len(services))
		for _, s := range services {
			status := s.Status()
			statuses[s.Type()] = status
			if status.IsReady() {
				readyServices++
			}
		}

		var status svcframework.Status
		if readyServices < len(services) {
			status = svcframework.Status{
				Status:  svcframework.StatusNotReady,
				Message: fmt.Sprintf("out of [%d] services, [%d] are ready", len(services), readyServices),
			}
		} else {
			status = svcframework.Status{
				Status:  svcframework.StatusReady,
				Message: "all services ready",
			}
		}
		framework.Respond(c, GetReadinessResponse{
			Status:          status,
			ServiceStatuses: statuses,
		}, http.StatusOK)
	}
}
