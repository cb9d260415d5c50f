// Package policy holds the pure decision rules of the dialer engine.
package policy

import (
	"time"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// IsInWindow reports whether campaign c may dial at now.
//
// Every condition is evaluated against the single instant passed in; callers
// capture the clock once per cycle. A window whose stop time precedes its
// start time (overnight) never matches, nor does an expiration before the start.
func IsInWindow(c *model.Campaign, now time.Time) bool {
	if c == nil || c.Status != model.CampaignStart {
		return false
	}
	if now.Before(c.StartingDate) || now.After(c.ExpirationDate) {
		return false
	}
	tod := model.TimeOfDayOf(now)
	if tod < c.DailyStartTime || tod > c.DailyStopTime {
		return false
	}
	return c.Weekdays.On(now.Weekday())
}

// FilterRunning keeps the campaigns that are in window at now.
func FilterRunning(campaigns []*model.Campaign, now time.Time) []*model.Campaign {
	running := make([]*model.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if IsInWindow(c, now) {
			running = append(running, c)
		}
	}
	return running
}
