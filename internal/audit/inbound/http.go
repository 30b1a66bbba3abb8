package inbound

import (
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/audit/events", end.ListEvents, r.Authorize("audit", "read"))
}
