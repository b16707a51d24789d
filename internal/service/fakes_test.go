package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"
	"draftkeeper/internal/repository"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

type fakeProvider struct {
	session    *model.Session
	err        error
	signOutErr error
	signedOut  []string
}

func (f *fakeProvider) SignUp(_ context.Context, _, _, _ string) (*model.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) SignIn(_ context.Context, _, _ string) (*model.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

type fakeUsers struct {
	mu       sync.Mutex
	profiles map[string]*model.UserProfile
}

func newFakeUsers(profiles ...*model.UserProfile) *fakeUsers {
	u := &fakeUsers{profiles: map[string]*model.UserProfile{}}
	for _, p := range profiles {
		u.profiles[p.ID] = p.Clone()
	}
	return u
}

func (u *fakeUsers) CreateProfile(_ context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if existing, ok := u.profiles[p.ID]; ok {
		return existing.Clone(), nil
	}
	saved := p.Clone()
	saved.Version = 1
	u.profiles[p.ID] = saved
	return saved.Clone(), nil
}

func (u *fakeUsers) GetProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.profiles[userID]
	if !ok {
		return nil, entitlement.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (u *fakeUsers) UpdateProfile(_ context.Context, p *model.UserProfile, _ ...model.ProfileField) (*model.UserProfile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	current, ok := u.profiles[p.ID]
	if !ok {
		return nil, entitlement.ErrProfileNotFound
	}
	if current.Version != p.Version {
		return nil, entitlement.ErrVersionConflict
	}
	saved := p.Clone()
	saved.Version++
	u.profiles[p.ID] = saved
	return saved.Clone(), nil
}

func (u *fakeUsers) get(id string) *model.UserProfile {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.profiles[id].Clone()
}

type fakePayments struct {
	byProviderID map[string]*model.Payment
	marked       int
}

func newFakePayments() *fakePayments {
	return &fakePayments{byProviderID: map[string]*model.Payment{}}
}

func (f *fakePayments) RecordPayment(_ context.Context, p *model.Payment) (bool, error) {
	if _, ok := f.byProviderID[p.ProviderPaymentID]; ok {
		return false, nil
	}
	cp := *p
	cp.Status = model.PaymentPending
	f.byProviderID[p.ProviderPaymentID] = &cp
	return true, nil
}

func (f *fakePayments) Status(_ context.Context, id string) (model.PaymentStatus, error) {
	p, ok := f.byProviderID[id]
	if !ok {
		return "", repository.ErrPaymentNotFound
	}
	return p.Status, nil
}

func (f *fakePayments) MarkStatus(_ context.Context, id string, status model.PaymentStatus) error {
	p, ok := f.byProviderID[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	p.Status = status
	f.marked++
	return nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID string) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.byProviderID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeDrafts struct {
	drafts map[string]*model.Draft
	err    error
}

func newFakeDrafts(drafts ...*model.Draft) *fakeDrafts {
	f := &fakeDrafts{drafts: map[string]*model.Draft{}}
	for _, d := range drafts {
		cp := *d
		f.drafts[d.ID] = &cp
	}
	return f
}

func (f *fakeDrafts) sorted(keep func(*model.Draft) bool) []model.Draft {
	out := []model.Draft{}
	for _, d := range f.drafts {
		if keep(d) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeDrafts) ListPublished(_ context.Context, filter model.CatalogFilter) ([]model.Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := strings.ToLower(filter.Search)
	return f.sorted(func(d *model.Draft) bool {
		if !d.IsPublished {
			return false
		}
		c := strings.TrimSpace(filter.Category)
		if c != "" && !strings.EqualFold(c, "all") && d.Category != c {
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(d.Title), q)
	}), nil
}

func (f *fakeDrafts) ListAll(_ context.Context) ([]model.Draft, error) {
	return f.sorted(func(*model.Draft) bool { return true }), nil
}

func (f *fakeDrafts) GetDraft(_ context.Context, id string) (*model.Draft, error) {
	d, ok := f.drafts[id]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDrafts) CreateDraft(_ context.Context, d *model.Draft) (*model.Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *d
	f.drafts[d.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDrafts) UpdateDraft(_ context.Context, id string, upd model.DraftUpdate) (*model.Draft, error) {
	d, ok := f.drafts[id]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Description != nil {
		d.Description = *upd.Description
	}
	if upd.FileName != nil {
		d.FileName = *upd.FileName
	}
	if upd.FileSize != nil {
		d.FileSize = *upd.FileSize
	}
	if upd.Category != nil {
		d.Category = *upd.Category
	}
	if upd.Tags != nil {
		d.Tags = *upd.Tags
	}
	if upd.IsPublished != nil {
		d.IsPublished = *upd.IsPublished
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDrafts) SetStoragePath(_ context.Context, id, path string) error {
	d, ok := f.drafts[id]
	if !ok {
		return repository.ErrDraftNotFound
	}
	d.StoragePath = path
	return nil
}

func (f *fakeDrafts) DeleteDraft(_ context.Context, id string) (*model.Draft, error) {
	d, ok := f.drafts[id]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	delete(f.drafts, id)
	return d, nil
}

func (f *fakeDrafts) Categories(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, d := range f.drafts {
		if d.IsPublished && !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeDrafts) Stats(_ context.Context) (*model.CatalogStats, error) {
	s := &model.CatalogStats{}
	cats := map[string]bool{}
	for _, d := range f.drafts {
		s.TotalDrafts++
		if d.IsPublished {
			s.PublishedDrafts++
		}
		s.TotalDownloads += d.DownloadCount
		cats[d.Category] = true
	}
	s.Categories = len(cats)
	return s, nil
}

func (f *fakeDrafts) IncrementDownloadCount(_ context.Context, id string) error {
	d, ok := f.drafts[id]
	if !ok {
		return repository.ErrDraftNotFound
	}
	d.DownloadCount++
	return nil
}

type fakeDownloads struct {
	users *fakeUsers
	items []*model.Download
}

func (f *fakeDownloads) RecordDownload(ctx context.Context, d *model.Download, counted *model.UserProfile) (*model.UserProfile, error) {
	var saved *model.UserProfile
	if counted != nil {
		var err error
		if saved, err = f.users.UpdateProfile(ctx, counted, model.FieldDownloadsThisMonth); err != nil {
			return nil, err
		}
	}
	f.items = append(f.items, d)
	return saved, nil
}

func (f *fakeDownloads) ListByUser(_ context.Context, userID string, limit int) ([]model.Download, error) {
	var out []model.Download
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].UserID == userID {
			out = append(out, *f.items[i])
		}
	}
	return out, nil
}

type fakeFiles struct {
	presignErr error
	deleted    []string
	uploads    []string
}

func (f *fakeFiles) PresignUpload(_ context.Context, key, contentType string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.uploads = append(f.uploads, key)
	return "https://files.test/put/" + key + "?ct=" + contentType, nil
}

func (f *fakeFiles) PresignDownload(_ context.Context, key, _ string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://files.test/get/" + key, nil
}

func (f *fakeFiles) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeQueue struct {
	queue  string
	events []any
	err    error
}

func (f *fakeQueue) SendJSON(_ context.Context, queue string, v any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.queue = queue
	f.events = append(f.events, v)
	return int64(len(f.events)), nil
}

type fakeCache struct {
	published     map[string][]model.Draft
	categories    []string
	invalidations int
	readErr       error
}

func newFakeCache() *fakeCache {
	return &fakeCache{published: map[string][]model.Draft{}}
}

func cacheKey(f model.CatalogFilter) string { return f.Category + "|" + f.Search }

func (c *fakeCache) Published(_ context.Context, f model.CatalogFilter) ([]model.Draft, bool, error) {
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	d, ok := c.published[cacheKey(f)]
	return d, ok, nil
}

func (c *fakeCache) StorePublished(_ context.Context, f model.CatalogFilter, drafts []model.Draft) error {
	c.published[cacheKey(f)] = drafts
	return nil
}

func (c *fakeCache) Categories(_ context.Context) ([]string, bool, error) {
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	return c.categories, c.categories != nil, nil
}

func (c *fakeCache) StoreCategories(_ context.Context, categories []string) error {
	c.categories = categories
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context) error {
	c.invalidations++
	c.published = map[string][]model.Draft{}
	c.categories = nil
	return nil
}

type fixture struct {
	users     *fakeUsers
	downloads *fakeDownloads
	engine    *entitlement.Engine
	accounts  AccountService
	provider  *fakeProvider
}

func newFixture(profiles ...*model.UserProfile) *fixture {
	f := &fixture{
		users:     newFakeUsers(profiles...),
		downloads: &fakeDownloads{},
		provider:  &fakeProvider{},
	}
	f.downloads.users = f.users
	clock := entitlement.ClockFunc(func() time.Time { return testNow })
	f.engine = entitlement.NewEngine(f.users, f.downloads, clock, zerolog.Nop())
	f.accounts = NewAccountService(f.provider, f.users, f.engine, zerolog.Nop())
	return f
}

func trialProfile(id string, plan model.PlanID, downloads int) *model.UserProfile {
	p := model.NewUserProfile(id, id+"@example.com", "Test "+id, testNow.AddDate(0, 0, -5))
	p.SelectedPlan = model.ChoosePlan(plan)
	p.DownloadsThisMonth = downloads
	p.Version = 1
	return p
}

var errBoom = errors.New("boom")
