package model

import "time"

// DialRequest is what the dialing collaborator needs to originate one call attempt
type DialRequest struct {
	RequestID       string            `json:"request_id"`
	SubscriberID    int               `json:"subscriber_id"`
	CampaignID      int               `json:"campaign_id"`
	PhoneNumber     string            `json:"phone_number"`
	CallTimeout     int               `json:"call_timeout"`
	CallMaxDuration int               `json:"call_max_duration"`
	AnswerURL       string            `json:"answer_url,omitempty"`
	GatewayID       int               `json:"gateway_id"`
	ExtraData       string            `json:"extra_data,omitempty"`
	AdditionalVars  map[string]string `json:"additional_vars,omitempty"`
}

// AttemptReport is the dialer's report of a finished attempt
// and must echo the RequestID of the DialRequest it answers.
type AttemptReport struct {
	RequestID     string         `json:"request_id"`
	SubscriberID  int            `json:"subscriber_id"`
	CallRequestID *int           `json:"callrequest_id,omitempty"`
	Outcome       AttemptOutcome `json:"outcome"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
