package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhallhq/studyhall/internal/observability"
)

// MetricsOverviewResponse summarizes chat pipeline activity.
type MetricsOverviewResponse struct {
	RunTotal     int64                        `json:"run_total"`
	RunFailed    int64                        `json:"run_failed"`
	SuccessRate  float64                      `json:"success_rate"`
	TokensSent   int64                        `json:"tokens_sent"`
	Capabilities map[string]CapabilityMetrics `json:"capabilities"`
}

// CapabilityMetrics summarizes one capability's invocation history.
type CapabilityMetrics struct {
	Invocations   int64 `json:"invocations"`
	Failures      int64 `json:"failures"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
}

// GetMetricsOverview returns the chat metrics overview.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := observability.GlobalMetrics().Snapshot()

	capabilities := make(map[string]CapabilityMetrics, len(snapshot.Capabilities))
	for name, cm := range snapshot.Capabilities {
		capabilities[name] = CapabilityMetrics{
			Invocations:   cm.Invocations,
			Failures:      cm.Failures,
			AvgDurationMs: cm.AvgDuration,
		}
	}

	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		RunTotal:     snapshot.RunTotal,
		RunFailed:    snapshot.RunFailed,
		SuccessRate:  snapshot.SuccessRate(),
		TokensSent:   snapshot.TokensSent,
		Capabilities: capabilities,
	})
}
