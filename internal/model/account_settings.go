// internal/model/account_settings.go
package model

// AccountSettings holds the per-account dialer ceilings and contact filters.
// A nil pointer means the account sets no limit for that field.
type AccountSettings struct {
	AccountID       int    `db:"account_id" json:"account_id"`
	MaxFrequency    *int   `db:"max_frequency" json:"max_frequency,omitempty"`
	CallMaxDuration *int   `db:"call_max_duration" json:"callmaxduration,omitempty"`
	MaxCampaigns    *int   `db:"max_campaigns" json:"max_campaigns,omitempty"`
	MaxContacts     *int   `db:"max_contacts" json:"max_contacts,omitempty"`
	Whitelist       string `db:"whitelist" json:"whitelist,omitempty"`
	Blacklist       string `db:"blacklist" json:"blacklist,omitempty"`
}
