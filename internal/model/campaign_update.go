// internal/model/campaign_update.go
package model

import "time"

// CampaignUpdate lists the campaign fields a caller may change. Nil means "leave as is".
type CampaignUpdate struct {
	Status          *CampaignStatus `json:"status,omitempty"`
	Description     *string         `json:"description,omitempty"`
	StartingDate    *time.Time      `json:"startingdate,omitempty"`
	ExpirationDate  *time.Time      `json:"expirationdate,omitempty"`
	DailyStartTime  *TimeOfDay      `json:"daily_start_time,omitempty"`
	DailyStopTime   *TimeOfDay      `json:"daily_stop_time,omitempty"`
	Monday          *bool           `json:"monday,omitempty"`
	Tuesday         *bool           `json:"tuesday,omitempty"`
	Wednesday       *bool           `json:"wednesday,omitempty"`
	Thursday        *bool           `json:"thursday,omitempty"`
	Friday          *bool           `json:"friday,omitempty"`
	Saturday        *bool           `json:"saturday,omitempty"`
	Sunday          *bool           `json:"sunday,omitempty"`
	Frequency       *int            `json:"frequency,omitempty"`
	CallMaxDuration *int            `json:"callmaxduration,omitempty"`
	MaxRetry        *int            `json:"maxretry,omitempty"`
	IntervalRetry   *int            `json:"intervalretry,omitempty"`
	CallTimeout     *int            `json:"calltimeout,omitempty"`
	GatewayID       *int            `json:"aleg_gateway,omitempty"`
	AnswerURL       *string         `json:"answer_url,omitempty"`
	ExtraData       *string         `json:"extra_data,omitempty"`
}

// Apply copies every present field onto c.
func (u CampaignUpdate) Apply(c *Campaign) {
	setIf(&c.Status, u.Status)
	setIf(&c.Description, u.Description)
	setIf(&c.StartingDate, u.StartingDate)
	setIf(&c.ExpirationDate, u.ExpirationDate)
	setIf(&c.DailyStartTime, u.DailyStartTime)
	setIf(&c.DailyStopTime, u.DailyStopTime)
	setIf(&c.Weekdays[time.Monday], u.Monday)
	setIf(&c.Weekdays[time.Tuesday], u.Tuesday)
	setIf(&c.Weekdays[time.Wednesday], u.Wednesday)
	setIf(&c.Weekdays[time.Thursday], u.Thursday)
	setIf(&c.Weekdays[time.Friday], u.Friday)
	setIf(&c.Weekdays[time.Saturday], u.Saturday)
	setIf(&c.Weekdays[time.Sunday], u.Sunday)
	setIf(&c.Frequency, u.Frequency)
	setIf(&c.CallMaxDuration, u.CallMaxDuration)
	setIf(&c.MaxRetry, u.MaxRetry)
	setIf(&c.IntervalRetry, u.IntervalRetry)
	setIf(&c.CallTimeout, u.CallTimeout)
	setIf(&c.GatewayID, u.GatewayID)
	setIf(&c.AnswerURL, u.AnswerURL)
	setIf(&c.ExtraData, u.ExtraData)
}

// IsEmpty reports whether the update carries no field at all.
func (u CampaignUpdate) IsEmpty() bool {
	return u == CampaignUpdate{}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
