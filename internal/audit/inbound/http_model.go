package inbound

import (
	"encoding/json"
	"strconv"
	"time"
)

type EventResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind" example:"authenticator.exported"`
	Detail    json.RawMessage `json:"detail" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
	// meta
	total int64
	take  int
	skip  int
}

func (r EventsResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"take":  r.take,
		"skip":  r.skip,
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
