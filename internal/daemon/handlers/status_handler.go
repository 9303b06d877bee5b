package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/version"
)

// Counter reports a size, such as the number of watches or open sockets.
type Counter interface {
	Len() int
}

// VersionCounter reports how many versions are stored per watched root.
type VersionCounter interface {
	Watches() []daemonmsg.Watch
	Count(ctx context.Context, root string) (int, error)
}

type StatusHandler struct {
	watches   Counter
	frontends Counter
	versions  VersionCounter
	startedAt time.Time
	proc      *process.Process
}

func NewStatusHandler(watches Counter, frontends Counter, versions VersionCounter) *StatusHandler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("status process handle", "error", err)
	}
	return &StatusHandler{
		watches:   watches,
		frontends: frontends,
		versions:  versions,
		startedAt: time.Now(),
		proc:      proc,
	}
}

// Status godoc
//
//	@Summary	Get daemon status
//	@Tags		status
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/v1/status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	resp := &StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
		Revision:  version.Revision,
		BuildDate: version.BuildDate,
		Runtime:   h.runtime(c),
	}
	if h.watches != nil {
		resp.Watches = h.watches.Len()
	}
	if h.frontends != nil {
		resp.Frontends = h.frontends.Len()
	}
	if h.versions != nil {
		resp.Versions = h.versionCounts(c.Request.Context())
	}

	c.PureJSON(http.StatusOK, resp)
}

func (h *StatusHandler) versionCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)
	for _, w := range h.versions.Watches() {
		n, err := h.versions.Count(ctx, w.Root)
		if err != nil {
			slog.Warn("status version count", "root", w.Root, "error", err)
			continue
		}
		counts[w.Root] = n
	}
	return counts
}

func (h *StatusHandler) runtime(c *gin.Context) *RuntimeStatus {
	rt := &RuntimeStatus{
		PID:        int32(os.Getpid()),
		StartedAt:  h.startedAt.UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	if h.proc == nil {
		return rt
	}

	ctx := c.Request.Context()
	if mem, err := h.proc.MemoryInfoWithContext(ctx); err == nil {
		rt.RSSBytes = mem.RSS
	}
	if cpu, err := h.proc.CPUPercentWithContext(ctx); err == nil {
		rt.CPUPercent = cpu
	}
	return rt
}
