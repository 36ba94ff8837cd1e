package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status        string          `json:"status"`
	Port          int             `json:"port"`
	Version       string          `json:"version,omitempty"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds float64         `json:"uptimeSeconds"`
	Providers     ProviderStatus  `json:"providers"`
	Memory        *MemoryResponse `json:"memory,omitempty"`
}

// ProviderStatus tells which providers have server-side credentials
type ProviderStatus struct {
	XAI    bool `json:"xai"`
	Gemini bool `json:"gemini"`
}

// MemoryResponse reports host and process memory use
type MemoryResponse struct {
	ProcessRSSMB  float64 `json:"processRssMb"`
	SystemUsedPct float64 `json:"systemUsedPercent"`
	SystemTotalMB float64 `json:"systemTotalMb"`
}

// Health handles GET /api/health
func (c *Controller) Health(ctx echo.Context) error {
	uptime := c.now().Sub(c.app.StartedAt())
	creds := c.app.Credentials()

	resp := HealthResponse{
		Status:        "ok",
		Port:          c.app.Settings.Server.Port,
		Version:       c.app.Settings.Version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Providers: ProviderStatus{
			XAI:    creds.XAI != "",
			Gemini: creds.Google != "",
		},
		Memory: c.memoryStats(ctx),
	}
	return ctx.JSON(http.StatusOK, resp)
}

// memoryStats returns nil when the host does not expose memory counters
func (c *Controller) memoryStats(ctx echo.Context) *MemoryResponse {
	reqCtx := ctx.Request().Context()

	vm, err := mem.VirtualMemoryWithContext(reqCtx)
	if err != nil {
		c.log.Debug("memory stats unavailable")
		return nil
	}
	out := &MemoryResponse{
		SystemUsedPct: vm.UsedPercent,
		SystemTotalMB: float64(vm.Total) / 1024 / 1024,
	}

	proc, err := process.NewProcessWithContext(reqCtx, int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return out
	}
	if info, err := proc.MemoryInfoWithContext(reqCtx); err == nil && info != nil {
		out.ProcessRSSMB = float64(info.RSS) / 1024 / 1024
	}
	return out
}
