package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/twofa/docs"
)

func serveDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := io.WriteString(w, docs.SwaggerInfo.ReadDoc()); err != nil {
		slog.ErrorContext(r.Context(), "failed to write api doc", "error", err)
	}
}
