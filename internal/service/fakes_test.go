package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// store is an in-memory database shared by the fake repositories. Every method takes mu,
// which gives the same serialization the row locks give in Postgres.
type store struct {
	mu         sync.Mutex
	nextID     int
	campaigns  map[int]*model.Campaign
	links      map[int][]int
	phonebooks map[int]*model.Phonebook
	contacts   map[int]*model.Contact
	subs       map[int]*model.CampaignSubscriber
	settings   map[int]*model.AccountSettings
	// failMove makes moving a subscriber out of IN_PROCESS to the given status fail
	failMove map[int]model.SubscriberStatus
}

var errStoreDown = errors.New("store unavailable")

func newStore() *store {
	return &store{
		campaigns:  map[int]*model.Campaign{},
		links:      map[int][]int{},
		phonebooks: map[int]*model.Phonebook{},
		contacts:   map[int]*model.Contact{},
		subs:       map[int]*model.CampaignSubscriber{},
		settings:   map[int]*model.AccountSettings{},
		failMove:   map[int]model.SubscriberStatus{},
	}
}

func (s *store) id() int {
	s.nextID++
	return s.nextID
}

// seedCampaign adds a START campaign with one phonebook holding the given numbers
func (s *store) seedCampaign(accountID int, numbers ...string) (*model.Campaign, *model.Phonebook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.NewCampaign(accountID, "c", time.Now())
	c.ID = s.id()
	s.campaigns[c.ID] = c
	pb := &model.Phonebook{ID: s.id(), AccountID: accountID, Name: "pb"}
	s.phonebooks[pb.ID] = pb
	s.links[c.ID] = []int{pb.ID}
	for _, n := range numbers {
		ct := &model.Contact{ID: s.id(), PhonebookID: pb.ID, Phone: n, Status: model.ContactActive}
		s.contacts[ct.ID] = ct
	}
	return c, pb
}

func (s *store) subscribersOf(campaignID int) []*model.CampaignSubscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.CampaignSubscriber
	for _, sub := range s.subs {
		if sub.CampaignID == campaignID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) subscriber(id int) model.CampaignSubscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.subs[id]
}

func (s *store) linked(campaignID, phonebookID int) bool {
	for _, id := range s.links[campaignID] {
		if id == phonebookID {
			return true
		}
	}
	return false
}

// ---- campaigns ----

type fakeCampaignRepo struct{ *store }

// Create checks every unique constraint before writing, so a refused create stores nothing
func (r fakeCampaignRepo) Create(_ context.Context, c *model.Campaign, pb *model.Phonebook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.campaigns {
		if existing.Name == c.Name {
			return appErrors.NewConflict("campaign", c.Name)
		}
	}
	if pb != nil {
		if err := r.phonebookNameFree(pb.Name); err != nil {
			return err
		}
	}
	c.ID = r.id()
	c.CreatedAt = time.Now()
	c.PhonebookIDs = []int{}
	if pb != nil {
		r.insertPhonebook(pb)
		r.links[c.ID] = []int{pb.ID}
		c.PhonebookIDs = []int{pb.ID}
	}
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r fakeCampaignRepo) CreatePhonebook(_ context.Context, campaignID int, pb *model.Phonebook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[campaignID]; !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	if err := r.phonebookNameFree(pb.Name); err != nil {
		return err
	}
	r.insertPhonebook(pb)
	r.links[campaignID] = append(r.links[campaignID], pb.ID)
	return nil
}

func (r fakeCampaignRepo) GetByID(_ context.Context, id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	cp.PhonebookIDs = append([]int{}, r.links[id]...)
	return &cp, nil
}

func (r fakeCampaignRepo) Update(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r fakeCampaignRepo) UpdateStatus(_ context.Context, id int, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (r fakeCampaignRepo) ListCampaigns(_ context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.Campaign
	for _, c := range r.campaigns {
		if status == "" || string(c.Status) == status {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r fakeCampaignRepo) ListByStatus(_ context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeCampaignRepo) ListActiveForContact(_ context.Context, contactID int) ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ct, ok := r.contacts[contactID]
	if !ok {
		return []*model.Campaign{}, nil
	}
	out := []*model.Campaign{}
	for id, c := range r.campaigns {
		if c.Status == model.CampaignStart && r.linked(id, ct.PhonebookID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeCampaignRepo) AttachPhonebook(_ context.Context, campaignID, phonebookID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.phonebooks[phonebookID]; !ok {
		return appErrors.NewPhonebookNotFound(phonebookID)
	}
	if _, ok := r.campaigns[campaignID]; !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	if !r.linked(campaignID, phonebookID) {
		r.links[campaignID] = append(r.links[campaignID], phonebookID)
	}
	return nil
}

func (r fakeCampaignRepo) CountByAccount(_ context.Context, accountID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.campaigns {
		if c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// ---- phonebooks ----

type fakePhonebookRepo struct{ *store }

// phonebook names are unique across accounts, like the schema's UNIQUE (name)
func (s *store) phonebookNameFree(name string) error {
	for _, existing := range s.phonebooks {
		if existing.Name == name {
			return appErrors.NewConflict("phonebook", name)
		}
	}
	return nil
}

func (s *store) insertPhonebook(p *model.Phonebook) {
	p.ID = s.id()
	cp := *p
	s.phonebooks[p.ID] = &cp
}

func (r fakePhonebookRepo) GetByID(_ context.Context, id int) (*model.Phonebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.phonebooks[id]
	if !ok {
		return nil, appErrors.NewPhonebookNotFound(id)
	}
	cp := *p
	return &cp, nil
}

// ---- contacts ----

type fakeContactRepo struct{ *store }

func (r fakeContactRepo) Create(_ context.Context, c *model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.contacts {
		if existing.PhonebookID == c.PhonebookID && existing.Phone == c.Phone {
			return appErrors.NewConflict("contact", c.Phone)
		}
	}
	c.ID = r.id()
	cp := *c
	r.contacts[c.ID] = &cp
	return nil
}

func (r fakeContactRepo) ActiveContactsWithoutSubscriber(_ context.Context, campaignID int) ([]model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subscribed := map[int]bool{}
	numbers := map[string]bool{}
	for _, s := range r.subs {
		if s.CampaignID == campaignID {
			subscribed[s.ContactID] = true
			numbers[s.DuplicateContact] = true
		}
	}
	var candidates []model.Contact
	for _, c := range r.contacts {
		if c.Status == model.ContactActive && r.linked(campaignID, c.PhonebookID) &&
			!subscribed[c.ID] && !numbers[c.Phone] {
			candidates = append(candidates, *c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	out := []model.Contact{}
	for _, c := range candidates {
		if !numbers[c.Phone] {
			numbers[c.Phone] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeContactRepo) CountForCampaign(_ context.Context, campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.contacts {
		if r.linked(campaignID, c.PhonebookID) {
			n++
		}
	}
	return n, nil
}

func (r fakeContactRepo) CountByAccount(_ context.Context, accountID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.contacts {
		if pb, ok := r.phonebooks[c.PhonebookID]; ok && pb.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// ---- subscribers ----

type fakeSubscriberRepo struct{ *store }

func (r fakeSubscriberRepo) Create(_ context.Context, s *model.CampaignSubscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subs {
		if existing.CampaignID == s.CampaignID &&
			(existing.ContactID == s.ContactID || existing.DuplicateContact == s.DuplicateContact) {
			return appErrors.NewConflict("subscriber", s.DuplicateContact)
		}
	}
	s.ID = r.id()
	cp := *s
	r.subs[s.ID] = &cp
	return nil
}

func (r fakeSubscriberRepo) ClaimPending(_ context.Context, campaignID, limit int, now time.Time) ([]model.DispatchCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return []model.DispatchCandidate{}, nil
	}
	var ids []int
	for id, s := range r.subs {
		if s.CampaignID == campaignID && s.IsDue(now, c.RetryInterval()) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := []model.DispatchCandidate{}
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		s := r.subs[id]
		s.Status = model.SubscriberInProcess
		var vars map[string]string
		if ct, ok := r.contacts[s.ContactID]; ok {
			vars = ct.AdditionalVars
		}
		out = append(out, model.DispatchCandidate{Subscriber: *s, AdditionalVars: vars})
	}
	return out, nil
}

func (r fakeSubscriberRepo) moveFromInProcess(id int, to model.SubscriberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status != model.SubscriberInProcess {
		return appErrors.NewSubscriberNotFound(id)
	}
	if st, fail := r.failMove[id]; fail && st == to {
		return errStoreDown
	}
	s.Status = to
	return nil
}

func (r fakeSubscriberRepo) ReleaseToPending(_ context.Context, id int) error {
	return r.moveFromInProcess(id, model.SubscriberPending)
}

func (r fakeSubscriberRepo) MarkNotAuthorized(_ context.Context, id int) error {
	return r.moveFromInProcess(id, model.SubscriberNotAuthorized)
}

func (r fakeSubscriberRepo) AssignRequest(_ context.Context, id int, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status != model.SubscriberInProcess {
		return appErrors.NewSubscriberNotFound(id)
	}
	s.RequestID = requestID
	return nil
}

func (r fakeSubscriberRepo) UpdateLocked(_ context.Context, id int, fn func(*model.CampaignSubscriber, int) error) (*model.CampaignSubscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, appErrors.NewSubscriberNotFound(id)
	}
	cp := *s
	if err := fn(&cp, r.campaigns[s.CampaignID].MaxRetry); err != nil {
		return nil, err
	}
	r.subs[id] = &cp
	out := cp
	return &out, nil
}

func (r fakeSubscriberRepo) FindByCampaignAndPhone(_ context.Context, campaignID int, phone string) (*model.CampaignSubscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.CampaignID == campaignID && s.DuplicateContact == phone {
			cp := *s
			return &cp, nil
		}
	}
	return nil, appErrors.NewSubscriberNotFound(phone)
}

func (r fakeSubscriberRepo) ListByCampaign(_ context.Context, campaignID int, phone string) ([]*model.CampaignSubscriber, error) {
	out := []*model.CampaignSubscriber{}
	for _, s := range r.subscribersOf(campaignID) {
		if phone == "" || s.DuplicateContact == phone {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r fakeSubscriberRepo) CountByStatus(_ context.Context, campaignID int) (map[model.SubscriberStatus]int, error) {
	counts := map[model.SubscriberStatus]int{}
	for _, s := range r.subscribersOf(campaignID) {
		counts[s.Status]++
	}
	return counts, nil
}

// ---- settings ----

type fakeSettingsRepo struct{ *store }

func (r fakeSettingsRepo) GetByAccount(_ context.Context, accountID int) (*model.AccountSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings[accountID], nil
}

// ---- cascade ----

type fakeCascadeRepo struct{ *store }

// RunInTx holds the store lock for the whole transaction and restores a snapshot on error
func (r fakeCascadeRepo) RunInTx(_ context.Context, fn func(repository.CascadeTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(fakeCascadeTx{r.store}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	campaigns  map[int]*model.Campaign
	links      map[int][]int
	phonebooks map[int]*model.Phonebook
	contacts   map[int]*model.Contact
	subs       map[int]*model.CampaignSubscriber
}

func (s *store) snapshot() snapshot {
	snap := snapshot{
		campaigns:  map[int]*model.Campaign{},
		links:      map[int][]int{},
		phonebooks: map[int]*model.Phonebook{},
		contacts:   map[int]*model.Contact{},
		subs:       map[int]*model.CampaignSubscriber{},
	}
	for k, v := range s.campaigns {
		snap.campaigns[k] = v
	}
	for k, v := range s.links {
		snap.links[k] = append([]int{}, v...)
	}
	for k, v := range s.phonebooks {
		snap.phonebooks[k] = v
	}
	for k, v := range s.contacts {
		snap.contacts[k] = v
	}
	for k, v := range s.subs {
		snap.subs[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.campaigns, s.links, s.phonebooks = snap.campaigns, snap.links, snap.phonebooks
	s.contacts, s.subs = snap.contacts, snap.subs
}

type fakeCascadeTx struct{ *store }

func (t fakeCascadeTx) LockCampaign(_ context.Context, id int) error {
	if _, ok := t.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

func (t fakeCascadeTx) PhonebookIDs(_ context.Context, id int) ([]int, error) {
	return append([]int{}, t.links[id]...), nil
}

func (t fakeCascadeTx) LockPhonebooks(context.Context, []int) error { return nil }

func (t fakeCascadeTx) OtherCampaignsReferencing(_ context.Context, campaignID int, ids []int) (int, error) {
	n := 0
	for cid := range t.links {
		if cid == campaignID {
			continue
		}
		for _, pb := range ids {
			if t.linked(cid, pb) {
				n++
				break
			}
		}
	}
	return n, nil
}

func (t fakeCascadeTx) DeleteContactsInPhonebooks(_ context.Context, ids []int) (int, error) {
	in := map[int]bool{}
	for _, id := range ids {
		in[id] = true
	}
	n := 0
	for id, c := range t.contacts {
		if in[c.PhonebookID] {
			delete(t.contacts, id)
			for sid, s := range t.subs {
				if s.ContactID == id {
					delete(t.subs, sid)
				}
			}
			n++
		}
	}
	return n, nil
}

func (t fakeCascadeTx) DeletePhonebooks(_ context.Context, ids []int) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := t.phonebooks[id]; ok {
			delete(t.phonebooks, id)
			n++
		}
		for cid, pbs := range t.links {
			kept := pbs[:0]
			for _, pb := range pbs {
				if pb != id {
					kept = append(kept, pb)
				}
			}
			t.links[cid] = kept
		}
	}
	return n, nil
}

func (t fakeCascadeTx) DeleteCampaign(_ context.Context, id int) error {
	if _, ok := t.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(t.campaigns, id)
	delete(t.links, id)
	for sid, s := range t.subs {
		if s.CampaignID == id {
			delete(t.subs, sid)
		}
	}
	return nil
}

// ---- dialer ----

type recordingDialer struct {
	mu       sync.Mutex
	requests []model.DialRequest
	failFor  map[string]bool
	onDial   func(model.DialRequest)
}

var errDialerDown = errors.New("dialer unavailable")

func (d *recordingDialer) Dial(_ context.Context, req model.DialRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[req.PhoneNumber] {
		return errDialerDown
	}
	d.requests = append(d.requests, req)
	if d.onDial != nil {
		d.onDial(req)
	}
	return nil
}

func (d *recordingDialer) sent() []model.DialRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.DialRequest{}, d.requests...)
}
