package background

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is either Structured or PlainText.
type Payload interface {
	isPayload()
}

// Structured is a JSON payload with a title, a body and string data.
type Structured struct {
	Title string
	Body  string
	Image string
	Data  map[string]string
}

// PlainText is a payload that was not valid JSON.
type PlainText struct {
	Body string
}

func (Structured) isPayload() {}
func (PlainText) isPayload()  {}

type wirePayload struct {
	Notification *wireNotification `json:"notification"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Image        string            `json:"image"`
	Data         map[string]any    `json:"data"`
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

// ParsePayload never fails. Missing data yields an empty Structured payload and
// anything that is not a JSON object becomes PlainText.
func ParsePayload(raw []byte, present bool) Payload {
	if !present || len(strings.TrimSpace(string(raw))) == 0 {
		return Structured{}
	}
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return PlainText{Body: strings.TrimSpace(string(raw))}
	}
	s := Structured{Title: w.Title, Body: w.Body, Image: w.Image}
	if n := w.Notification; n != nil {
		s.Title = firstNonEmpty(n.Title, s.Title)
		s.Body = firstNonEmpty(n.Body, s.Body)
		s.Image = firstNonEmpty(n.Image, s.Image)
	}
	if len(w.Data) > 0 {
		s.Data = make(map[string]string, len(w.Data))
		for k, v := range w.Data {
			switch val := v.(type) {
			case string:
				s.Data[k] = val
			case nil:
			default:
				s.Data[k] = fmt.Sprint(val)
			}
		}
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
