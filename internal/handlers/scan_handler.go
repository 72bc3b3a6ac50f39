package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/response"
	"github.com/quorumapp/quorum-api/internal/scheduler"
)

// ScanHandler exposes the shard scan as an internal endpoint so operators
// can force a pass without waiting for the ticker.
type ScanHandler struct {
	scanner    *scheduler.Scanner
	shardCount int
	log        *log.Logger
}

func NewScanHandler(scanner *scheduler.Scanner, shardCount int) *ScanHandler {
	return &ScanHandler{
		scanner:    scanner,
		shardCount: shardCount,
		log:        logger.Handler("scan_handler"),
	}
}

// ScanShard handles POST /api/internal/scan/{shard}
func (h *ScanHandler) ScanShard(c *gin.Context) {
	shard := c.Param("shard")
	if !scheduler.ValidShardKey(shard, h.shardCount) {
		response.BadRequestError(c, "unknown shard key")
		return
	}

	report, err := h.scanner.RunScan(c.Request.Context(), shard)
	if err != nil {
		h.log.Error("Shard scan failed", "shard", shard, "error", err)
		response.InternalServerError(c, "Shard scan failed")
		return
	}

	status := http.StatusOK
	message := "Scan completed"
	if !report.OK() {
		message = "Scan completed with failures"
	}
	response.SuccessResponse(c, status, message, report)
}
