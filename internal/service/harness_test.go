package service_test

import (
	"fmt"
	"time"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

type harness struct {
	st        *store
	stats     *cache.MemoryStatsCache
	dialer    *recordingDialer
	subs      *service.SubscriptionService
	dispatch  *service.DispatchService
	outcomes  *service.OutcomeService
	campaigns *service.CampaignService
	contacts  *service.ContactService
	cascade   *service.CascadeService
	now       time.Time
}

func newHarness() *harness {
	st := newStore()
	h := &harness{
		st:     st,
		stats:  cache.NewMemoryStatsCache(time.Minute),
		dialer: &recordingDialer{failFor: map[string]bool{}},
		now:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	campaigns := fakeCampaignRepo{st}
	contacts := fakeContactRepo{st}
	subscribers := fakeSubscriberRepo{st}
	settings := fakeSettingsRepo{st}
	phonebooks := fakePhonebookRepo{st}
	quota := &service.QuotaService{SettingsRepo: settings, CampaignRepo: campaigns, ContactRepo: contacts}

	h.subs = &service.SubscriptionService{
		CampaignRepo:   campaigns,
		ContactRepo:    contacts,
		SubscriberRepo: subscribers,
		Stats:          h.stats,
	}
	ids := 0
	h.dispatch = &service.DispatchService{
		SubscriberRepo: subscribers,
		SettingsRepo:   settings,
		Dialer:         h.dialer,
		Stats:          h.stats,
		NewRequestID: func() string {
			ids++
			return fmt.Sprintf("req-%d", ids)
		},
	}
	h.outcomes = &service.OutcomeService{
		SubscriberRepo: subscribers,
		Stats:          h.stats,
		Now:            func() time.Time { return h.now },
	}
	h.campaigns = &service.CampaignService{
		CampaignRepo:   campaigns,
		ContactRepo:    contacts,
		SubscriberRepo: subscribers,
		Quota:          quota,
		Stats:          h.stats,
		Now:            func() time.Time { return h.now },
	}
	h.contacts = &service.ContactService{
		PhonebookRepo: phonebooks,
		ContactRepo:   contacts,
		Enroller:      h.subs,
		Quota:         quota,
	}
	h.cascade = &service.CascadeService{Repo: fakeCascadeRepo{st}, Stats: h.stats}
	return h
}

// enrolledCampaign seeds a START campaign and enrolls all its contacts
func (h *harness) enrolledCampaign(accountID int, numbers ...string) *model.Campaign {
	c, _ := h.st.seedCampaign(accountID, numbers...)
	if _, err := h.subs.SyncCampaign(ctxBG, c); err != nil {
		panic(err)
	}
	return c
}
