package messaging

import (
	"encoding/json"
	"time"
)

// envelope carries key and headers for brokers without native support.
type envelope struct {
	ID          string            `json:"id,omitempty"`
	Key         string            `json:"key,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body"`
	Text        bool              `json:"text,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

func seal(msg Message) ([]byte, error) {
	body := msg.Body
	text := !json.Valid(body)
	if text {
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return nil, err
		}
		body = quoted
	}

	return json.Marshal(envelope{
		ID:          msg.ID,
		Key:         msg.Key,
		Headers:     msg.Headers,
		Body:        body,
		Text:        text,
		PublishedAt: msg.PublishedAt,
	})
}

func unseal(topic string, raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, err
	}

	body := []byte(env.Body)
	if env.Text {
		var s string
		if err := json.Unmarshal(env.Body, &s); err != nil {
			return Message{}, err
		}
		body = []byte(s)
	}

	return Message{
		ID:          env.ID,
		Topic:       topic,
		Key:         env.Key,
		Body:        body,
		Headers:     env.Headers,
		PublishedAt: env.PublishedAt,
	}, nil
}
