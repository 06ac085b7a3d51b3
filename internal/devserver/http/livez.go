package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe returning status, uptime and version
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	opssdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, opssdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
