package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/google/uuid"
)

type memState struct {
	journals      map[uuid.UUID]models.Journal
	notifications map[uuid.UUID]models.Notification // by journal id
	pages         map[uuid.UUID]models.Page
	images        []models.Image
	users         map[uuid.UUID]models.User
	profiles      map[uuid.UUID]models.Profile
}

func newMemState() *memState {
	return &memState{
		journals:      map[uuid.UUID]models.Journal{},
		notifications: map[uuid.UUID]models.Notification{},
		pages:         map[uuid.UUID]models.Page{},
		users:         map[uuid.UUID]models.User{},
		profiles:      map[uuid.UUID]models.Profile{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.journals {
		c.journals[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.pages {
		c.pages[k] = v
	}
	c.images = append(c.images, s.images...)
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	return c
}

// memStore is a transactional in-memory repository.Store. WithTx works on a
// copy of the state and swaps it in only when fn succeeds.
type memStore struct {
	st    *memState
	clock time.Time

	// failCreatePage makes CreatePage return this error.
	failCreatePage error
}

func newMemStore() *memStore {
	return &memStore{st: newMemState(), clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	tx := &memStore{st: m.st.clone(), clock: m.clock, failCreatePage: m.failCreatePage}
	if err := fn(tx); err != nil {
		return err
	}
	m.st = tx.st
	m.clock = tx.clock
	return nil
}

func (m *memStore) CreateJournal(ctx context.Context, userID uuid.UUID, title string) (*models.Journal, error) {
	now := m.now()
	j := models.Journal{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	m.st.journals[j.ID] = j
	return &j, nil
}

func (m *memStore) GetJournal(ctx context.Context, id uuid.UUID) (*models.Journal, error) {
	j, ok := m.st.journals[id]
	if !ok || j.DeletedAt != nil {
		return nil, apperr.NotFound("mem.GetJournal", "Journal not found")
	}
	return &j, nil
}

func (m *memStore) previews(match func(models.Journal) bool) []models.JournalPreview {
	out := []models.JournalPreview{}
	for _, j := range m.st.journals {
		if j.DeletedAt != nil || !match(j) {
			continue
		}
		jp := models.JournalPreview{Journal: j}
		for _, p := range m.livePages(j.ID) {
			if jp.FirstPage == nil || p.CreatedAt.Before(jp.FirstPage.CreatedAt) {
				page := p
				jp.FirstPage = &page
			}
		}
		out = append(out, jp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (m *memStore) ListJournals(ctx context.Context, userID uuid.UUID, archived bool) ([]models.JournalPreview, error) {
	return m.previews(func(j models.Journal) bool { return j.UserID == userID && j.Archived == archived }), nil
}

func (m *memStore) SearchJournals(ctx context.Context, userID uuid.UUID, title string) ([]models.JournalPreview, error) {
	needle := strings.ToLower(title)
	return m.previews(func(j models.Journal) bool {
		return j.UserID == userID && !j.Archived && strings.Contains(strings.ToLower(j.Title), needle)
	}), nil
}

func (m *memStore) ToggleArchive(ctx context.Context, id uuid.UUID) (bool, error) {
	j, err := m.GetJournal(ctx, id)
	if err != nil {
		return false, err
	}
	j.Archived = !j.Archived
	m.st.journals[id] = *j
	return j.Archived, nil
}

func (m *memStore) DeleteJournal(ctx context.Context, id uuid.UUID) error {
	j, err := m.GetJournal(ctx, id)
	if err != nil {
		return err
	}
	now := m.now()
	j.DeletedAt = &now
	m.st.journals[id] = *j
	return nil
}

func (m *memStore) CreateNotification(ctx context.Context, journalID uuid.UUID, typ models.ReminderType, at string) (*models.Notification, error) {
	if _, ok := m.st.notifications[journalID]; ok {
		return nil, errors.New("duplicate notification")
	}
	n := models.Notification{ID: uuid.New(), JournalID: journalID, Type: typ, Time: at, CreatedAt: m.now()}
	m.st.notifications[journalID] = n
	return &n, nil
}

func (m *memStore) GetNotification(ctx context.Context, journalID uuid.UUID) (*models.Notification, error) {
	n, ok := m.st.notifications[journalID]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (m *memStore) livePages(journalID uuid.UUID) []models.Page {
	var out []models.Page
	for _, p := range m.st.pages {
		if p.JournalID == journalID {
			out = append(out, p)
		}
	}
	return out
}

func (m *memStore) CreatePage(ctx context.Context, journalID uuid.UUID, content string) (*models.Page, error) {
	if m.failCreatePage != nil {
		return nil, m.failCreatePage
	}
	p := models.Page{ID: uuid.New(), JournalID: journalID, Content: content, CreatedAt: m.now()}
	m.st.pages[p.ID] = p
	return &p, nil
}

func (m *memStore) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	p, ok := m.st.pages[id]
	if !ok {
		return nil, apperr.NotFound("mem.GetPage", "Journal page not found")
	}
	if j, ok := m.st.journals[p.JournalID]; !ok || j.DeletedAt != nil {
		return nil, apperr.NotFound("mem.GetPage", "Journal page not found")
	}
	return &p, nil
}

func (m *memStore) ListPages(ctx context.Context, journalID uuid.UUID) ([]models.Page, error) {
	pages := m.livePages(journalID)
	sort.Slice(pages, func(a, b int) bool { return pages[a].CreatedAt.After(pages[b].CreatedAt) })
	if pages == nil {
		pages = []models.Page{}
	}
	return pages, nil
}

func (m *memStore) DeletePage(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.st.pages[id]; !ok {
		return apperr.NotFound("mem.DeletePage", "Journal page not found")
	}
	delete(m.st.pages, id)
	return nil
}

func (m *memStore) CreateImage(ctx context.Context, pageID uuid.UUID, path string) (*models.Image, error) {
	img := models.Image{ID: uuid.New(), PageID: pageID, Path: path}
	m.st.images = append(m.st.images, img)
	return &img, nil
}

func (m *memStore) ListImages(ctx context.Context, pageID uuid.UUID) ([]models.Image, error) {
	out := []models.Image{}
	for _, img := range m.st.images {
		if img.PageID == pageID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	for _, existing := range m.st.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return repository.ErrUsernameTaken
		}
	}
	u.CreatedAt = m.now()
	u.IsActive = true
	m.st.users[u.ID] = *u
	return nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.st.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("mem.GetUserByUsername", "User not found")
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.st.users[id]
	if !ok {
		return nil, apperr.NotFound("mem.GetUser", "User not found")
	}
	return &u, nil
}

func (m *memStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	u, ok := m.st.users[userID]
	if !ok {
		return nil, apperr.NotFound("mem.GetProfile", "User not found")
	}
	p := m.st.profiles[userID]
	p.UserID = userID
	p.Name = u.Name
	p.Avatar = u.Avatar
	return &p, nil
}

func (m *memStore) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error {
	u, ok := m.st.users[userID]
	if !ok {
		return apperr.NotFound("mem.UpdateUserName", "User not found")
	}
	u.Name = name
	m.st.users[userID] = u
	return nil
}

func (m *memStore) SetAvatar(ctx context.Context, userID uuid.UUID, avatar string) error {
	u, ok := m.st.users[userID]
	if !ok {
		return apperr.NotFound("mem.SetAvatar", "User not found")
	}
	u.Avatar = avatar
	m.st.users[userID] = u
	return nil
}

func (m *memStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	stored := *p
	stored.Name, stored.Avatar = "", ""
	m.st.profiles[p.UserID] = stored
	return nil
}

var _ repository.Store = (*memStore)(nil)
