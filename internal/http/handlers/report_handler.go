// README: Reporting handlers: range summary and CSV export.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"porter/internal/modules/report"
)

type ReportHandler struct {
	reports *report.Service
}

func NewReportHandler(svc *report.Service) *ReportHandler {
	return &ReportHandler{reports: svc}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid date range")
		return
	}
	sum, err := h.reports.Summary(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"from":               sum.From,
		"to":                 sum.To,
		"created":            sum.Created,
		"completed":          sum.Completed,
		"cancelled":          sum.Cancelled,
		"stat_completed":     sum.StatCompleted,
		"avg_cycle_seconds":  sum.AvgCycleSeconds,
		"avg_pending_wait_s": sum.AvgPendingWaitS,
	})
}

func (h *ReportHandler) Export(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid date range")
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="transports.csv"`)
	if err := h.reports.ExportCSV(c.Request.Context(), c.Writer, from, to); err != nil {
		writeServiceError(c, err)
	}
}

// parseRange reads from/to query params (RFC3339 or YYYY-MM-DD); defaults to
// the trailing 24 hours.
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from, to := now.Add(-24*time.Hour), now

	if v := c.Query("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
