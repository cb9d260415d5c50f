// internal/policy/capacity.go
package policy

import "github.com/unclebandit/dialer-campaign-backend/internal/model"

// EffectiveFrequency caps the campaign's calls per minute by the account ceiling, if any.
func EffectiveFrequency(c *model.Campaign, settings *model.AccountSettings) int {
	if settings == nil {
		return c.Frequency
	}
	return capped(c.Frequency, settings.MaxFrequency)
}

// EffectiveMaxDuration caps the campaign's call duration by the account ceiling, if any.
func EffectiveMaxDuration(c *model.Campaign, settings *model.AccountSettings) int {
	if settings == nil {
		return c.CallMaxDuration
	}
	return capped(c.CallMaxDuration, settings.CallMaxDuration)
}

func capped(own int, ceiling *int) int {
	if ceiling == nil || own <= *ceiling {
		return own
	}
	return *ceiling
}
