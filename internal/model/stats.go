package model

// CampaignStats is the progress view of one campaign
type CampaignStats struct {
	CampaignID        int                      `json:"campaign_id"`
	Contacts          int                      `json:"contacts"`
	Subscribers       map[SubscriberStatus]int `json:"subscribers"`
	CompletionPercent float64                  `json:"completion_percent"`
}

// NewCampaignStats derives the completion percent as COMPLETE subscribers over contacts.
func NewCampaignStats(campaignID, contacts int, counts map[SubscriberStatus]int) *CampaignStats {
	s := &CampaignStats{CampaignID: campaignID, Contacts: contacts, Subscribers: counts}
	if contacts > 0 {
		s.CompletionPercent = float64(counts[SubscriberComplete]) * 100 / float64(contacts)
	}
	return s
}
