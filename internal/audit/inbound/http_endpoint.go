package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/audit/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

// HTTPEndpoint exposes the activity log.
type HTTPEndpoint struct {
	uc uc
}

// ListEvents returns the caller's security activity, newest first.
// @Summary List activity
// @Tags Audit
// @Security BearerAuth
// @Produce json
// @Param take query int false "Page size (1-100, default 50)"
// @Param skip query int false "Rows to skip"
// @Success 200 {object} router.successResponse{data=EventsResponse} "Activity"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/audit/events [get]
func (h *HTTPEndpoint) ListEvents(r *router.Request) (any, error) {
	take, err := r.GetQueryInt("take")
	if err != nil {
		return nil, err
	}
	skip, err := r.GetQueryInt("skip")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.List(r.Context(), usecase.ListInput{Take: take, Skip: skip})
	if err != nil {
		return nil, err
	}

	return EventsResponse{
		Events: lo.Map(resp.Events, func(e usecase.EventOutput, _ int) EventResponse {
			return EventResponse{ID: formatID(e.ID), Kind: e.Kind, Detail: e.Detail, CreatedAt: e.CreatedAt}
		}),
		total: resp.Total,
		take:  resp.Take,
		skip:  resp.Skip,
	}, nil
}
