package model

// BroadcastRequest is the admin payload for a broadcast.
type BroadcastRequest struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	ImageURL string            `json:"imageUrl"`
}

// Payload converts the request into a notification payload.
func (r BroadcastRequest) Payload() NotificationPayload {
	return NotificationPayload{
		Title:    r.Title,
		Body:     r.Body,
		Data:     r.Data,
		ImageURL: r.ImageURL,
	}
}

const (
	SendStatusSuccess = "SUCCESS"
	SendStatusFailed  = "FAILED"
)

// RecipientResult summarises one send attempt.
type RecipientResult struct {
	Token         string `json:"token"`
	Status        string `json:"status"`
	MessageID     string `json:"messageId,omitempty"`
	Error         string `json:"error,omitempty"`
	NotRegistered bool   `json:"notRegistered,omitempty"`
	Pruned        bool   `json:"pruned,omitempty"`
}

// BroadcastResult is the settled outcome of a broadcast.
type BroadcastResult struct {
	BroadcastID  string            `json:"broadcastId"`
	RequestedBy  string            `json:"requestedBy,omitempty"`
	Recipients   int               `json:"recipients"`
	SuccessCount int               `json:"successCount"`
	FailureCount int               `json:"failureCount"`
	PrunedCount  int               `json:"prunedCount"`
	Results      []RecipientResult `json:"results"`
}

// Failures returns only the failed results.
func (r *BroadcastResult) Failures() []RecipientResult {
	if r == nil {
		return nil
	}
	var failed []RecipientResult
	for _, res := range r.Results {
		if res.Status == SendStatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}
