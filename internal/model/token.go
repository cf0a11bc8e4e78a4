package model

import "time"

// DeviceToken is one registered push delivery endpoint keyed by its token string.
type DeviceToken struct {
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UserAgent string    `json:"userAgent"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenMetadata is what a client reports alongside a token on (re-)registration.
// A zero SeenAt means "now" to the store.
type TokenMetadata struct {
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
	SeenAt    time.Time
}

// TokenView hides the token when listing records to operators. CreatedAt is
// nil when the record was not read back from the store.
type TokenView struct {
	Token     string     `json:"token"`
	Platform  string     `json:"platform"`
	UserAgent string     `json:"userAgent"`
	LastSeen  time.Time  `json:"lastSeen"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// TokenPage is a paginated slice of token views.
type TokenPage struct {
	Data     []*TokenView `json:"data"`
	Total    int          `json:"total"`
	Pages    int          `json:"pages"`
	PageNum  int          `json:"pageNum"`
	PageSize int          `json:"pageSize"`
}
