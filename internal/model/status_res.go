package model

// StatusRes is the /healthz payload.
type StatusRes struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	TokenCount int    `json:"tokenCount"`
}
