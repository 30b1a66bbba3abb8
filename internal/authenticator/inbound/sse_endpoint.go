package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/twofa/internal/authenticator/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

// StreamCodes streams live codes of the caller using SSE.
// @Summary Stream codes
// @Description Streams a `code` event every second with the current code and countdown of every entry, or of one entry when id is given. EventSource clients may pass the token as access_token.
// @Tags Authenticator
// @Security BearerAuth
// @Produce text/event-stream
// @Param id query int false "Authenticator ID"
// @Param access_token query string false "Access token for EventSource clients"
// @Success 200 {object} CodeEvent "SSE stream of code events"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Streaming unsupported"
// @Router /api/v1/authenticators-stream [get]
func (h *HTTPEndpoint) StreamCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in usecase.StreamInput
	if v := r.URL.Query().Get("id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			router.WriteError(ctx, w, goerror.NewInvalidFormat("query id must be an integer"))
			return
		}
		in.ID = id
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		router.WriteError(ctx, w, goerror.NewServer(errStreamingUnsupported))
		return
	}

	started := false
	err := h.uc.Stream(ctx, in, func(tick countdown.Tick) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}

		payload, err := json.Marshal(toCodeEvent(tick))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: code\ndata: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()

		return nil
	})
	if err == nil {
		return
	}

	if !started {
		router.WriteError(ctx, w, err)
		return
	}
	slog.WarnContext(ctx, "code stream ended", "error", err)
}

var errStreamingUnsupported = errors.New("streaming unsupported")

func toCodeEvent(t countdown.Tick) CodeEvent {
	evt := CodeEvent{
		At:        t.At,
		Remaining: t.Remaining,
		Frames:    make([]CodeFrameEvent, 0, len(t.Frames)),
	}
	if t.Err != nil {
		evt.Error = "failed to load authenticators"
	}

	for _, f := range t.Frames {
		fe := CodeFrameEvent{
			ID:        f.Key,
			Name:      f.Label,
			Code:      f.Code,
			Remaining: f.Remaining,
			Step:      f.Step,
		}
		if f.Failed() {
			fe.Error = "invalid secret"
		}
		evt.Frames = append(evt.Frames, fe)
	}

	return evt
}
