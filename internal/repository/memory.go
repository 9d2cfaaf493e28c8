// Package repository provides the in-memory store behind the dev server.
package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/atinyakov/CTFClient/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("already exists")
)

type userRecord struct {
	user models.AdminUser
	hash []byte
}

type fileRecord struct {
	file    models.File
	content []byte
}

// Memory keeps every dev server record in maps guarded by one mutex.
type Memory struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[int64]userRecord
	teams         map[int64]models.Team
	challenges    map[int64]models.Challenge
	flags         map[int64]models.Flag
	hints         map[int64]models.Hint
	files         map[int64]fileRecord
	notifications []models.Notification
	now           func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]userRecord),
		teams:      make(map[int64]models.Team),
		challenges: make(map[int64]models.Challenge),
		flags:      make(map[int64]models.Flag),
		hints:      make(map[int64]models.Hint),
		files:      make(map[int64]fileRecord),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func sorted[T models.Identified](src map[int64]T, keep func(T) bool) []T {
	out := make([]T, 0, len(src))
	for _, v := range src {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(a.Identity(), b.Identity()) })
	return out
}

// CreateUser stores a new account with an already hashed password.
func (m *Memory) CreateUser(_ context.Context, nu models.NewUser, hash []byte, typ string) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.users {
		if r.user.Email == nu.Email {
			return models.AdminUser{}, ErrConflict
		}
	}
	u := models.AdminUser{
		User: models.User{ID: m.id(), Name: nu.Name, Email: nu.Email, Created: m.now()},
		Type: typ,
	}
	m.users[u.ID] = userRecord{user: u, hash: hash}
	return u, nil
}

// UserByEmail returns the account and its password hash.
func (m *Memory) UserByEmail(_ context.Context, email string) (models.AdminUser, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.users {
		if r.user.Email == email {
			return r.user, r.hash, nil
		}
	}
	return models.AdminUser{}, nil, ErrNotFound
}

func (m *Memory) User(_ context.Context, id int64) (models.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.users[id]
	if !ok {
		return models.AdminUser{}, ErrNotFound
	}
	return r.user, nil
}

func (m *Memory) Users(_ context.Context) []models.AdminUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AdminUser, 0, len(m.users))
	for _, r := range m.users {
		out = append(out, r.user)
	}
	slices.SortFunc(out, func(a, b models.AdminUser) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// UpdateUser merges upd into the account. A team id must name an existing team.
func (m *Memory) UpdateUser(_ context.Context, id int64, upd models.UserUpdate) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.users[id]
	if !ok {
		return models.AdminUser{}, ErrNotFound
	}
	if upd.TeamID != nil {
		if _, ok := m.teams[*upd.TeamID]; !ok {
			return models.AdminUser{}, ErrNotFound
		}
	}
	if upd.Email != nil && *upd.Email != r.user.Email {
		for _, other := range m.users {
			if other.user.Email == *upd.Email {
				return models.AdminUser{}, ErrConflict
			}
		}
	}
	r.user = upd.ApplyAdmin(r.user)
	m.users[id] = r
	return r.user, nil
}

func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Teams lists teams; admins also see hidden ones.
func (m *Memory) Teams(_ context.Context, includeHidden bool) []models.Team {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.teams, func(t models.Team) bool { return includeHidden || !t.Hidden })
}

func (m *Memory) Team(_ context.Context, id int64) (models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return models.Team{}, ErrNotFound
	}
	return t, nil
}

// TeamMembers lists the users whose team is id.
func (m *Memory) TeamMembers(_ context.Context, id int64) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.teams[id]; !ok {
		return nil, ErrNotFound
	}
	members := []models.User{}
	for _, r := range m.users {
		if r.user.TeamID != nil && *r.user.TeamID == id {
			members = append(members, r.user.User)
		}
	}
	slices.SortFunc(members, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return members, nil
}

func (m *Memory) CreateTeam(_ context.Context, nt models.NewTeam) (models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Name == nt.Name {
			return models.Team{}, ErrConflict
		}
	}
	t := models.Team{ID: m.id(), Name: nt.Name, Created: m.now()}
	m.teams[t.ID] = t
	return t, nil
}

func (m *Memory) UpdateTeam(_ context.Context, id int64, upd models.TeamUpdate) (models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return models.Team{}, ErrNotFound
	}
	if upd.Name != nil && *upd.Name != t.Name {
		for _, other := range m.teams {
			if other.Name == *upd.Name {
				return models.Team{}, ErrConflict
			}
		}
	}
	t = upd.Apply(t)
	m.teams[id] = t
	return t, nil
}

// DeleteTeam removes the team and detaches its members.
func (m *Memory) DeleteTeam(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return ErrNotFound
	}
	delete(m.teams, id)
	for uid, r := range m.users {
		if r.user.TeamID != nil && *r.user.TeamID == id {
			r.user.TeamID = nil
			m.users[uid] = r
		}
	}
	return nil
}

func (m *Memory) Challenges(_ context.Context) []models.Challenge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.challenges, nil)
}

func (m *Memory) Challenge(_ context.Context, id int64) (models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.challenges[id]
	if !ok {
		return models.Challenge{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) CreateChallenge(_ context.Context, nc models.NewChallenge) (models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Challenge{
		ID:          m.id(),
		Name:        nc.Name,
		Description: nc.Description,
		Value:       nc.Value,
		CategoryID:  nc.CategoryID,
		State:       nc.State,
		MaxAttempts: nc.MaxAttempts,
		Type:        nc.Type,
		Created:     m.now(),
		Start:       nc.Start,
		End:         nc.End,
	}
	m.challenges[c.ID] = c
	return c, nil
}

func (m *Memory) UpdateChallenge(_ context.Context, id int64, upd models.ChallengeUpdate) (models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return models.Challenge{}, ErrNotFound
	}
	c = upd.Apply(c)
	m.challenges[id] = c
	return c, nil
}

// DeleteChallenge removes the challenge with its flags, hints and files.
func (m *Memory) DeleteChallenge(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[id]; !ok {
		return ErrNotFound
	}
	delete(m.challenges, id)
	for fid, f := range m.flags {
		if f.ChallengeID == id {
			delete(m.flags, fid)
		}
	}
	for hid, h := range m.hints {
		if h.ChallengeID == id {
			delete(m.hints, hid)
		}
	}
	for fid, f := range m.files {
		if f.file.ChallengeID == id {
			delete(m.files, fid)
		}
	}
	return nil
}

// SetFrozen freezes or thaws one challenge, or all of them when id is 0.
func (m *Memory) SetFrozen(_ context.Context, id int64, frozen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == 0 {
		for cid, c := range m.challenges {
			c.Freeze = frozen
			m.challenges[cid] = c
		}
		return nil
	}
	c, ok := m.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.Freeze = frozen
	m.challenges[id] = c
	return nil
}

func (m *Memory) checkChallengeLocked(id int64) error {
	if _, ok := m.challenges[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) Flags(_ context.Context, challengeID int64) ([]models.Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return nil, err
	}
	return sorted(m.flags, func(f models.Flag) bool { return f.ChallengeID == challengeID }), nil
}

// SaveFlag creates a flag when flagID is 0 and replaces it otherwise.
func (m *Memory) SaveFlag(_ context.Context, challengeID, flagID int64, nf models.NewFlag) (models.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return models.Flag{}, err
	}
	if flagID == 0 {
		flagID = m.id()
	} else if f, ok := m.flags[flagID]; !ok || f.ChallengeID != challengeID {
		return models.Flag{}, ErrNotFound
	}
	f := models.Flag{ID: flagID, ChallengeID: challengeID, Content: nf.Content, Type: nf.Type, Data: nf.Data}
	m.flags[flagID] = f
	return f, nil
}

func (m *Memory) DeleteFlag(_ context.Context, challengeID, flagID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flags[flagID]; !ok || f.ChallengeID != challengeID {
		return ErrNotFound
	}
	delete(m.flags, flagID)
	return nil
}

func (m *Memory) Hints(_ context.Context, challengeID int64) ([]models.Hint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return nil, err
	}
	return sorted(m.hints, func(h models.Hint) bool { return h.ChallengeID == challengeID }), nil
}

// SaveHint creates a hint when hintID is 0 and replaces it otherwise.
func (m *Memory) SaveHint(_ context.Context, challengeID, hintID int64, nh models.NewHint) (models.Hint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return models.Hint{}, err
	}
	if hintID == 0 {
		hintID = m.id()
	} else if h, ok := m.hints[hintID]; !ok || h.ChallengeID != challengeID {
		return models.Hint{}, ErrNotFound
	}
	typ := nh.Type
	if typ == "" {
		typ = "standard"
	}
	h := models.Hint{ID: hintID, ChallengeID: challengeID, Content: nh.Content, Cost: nh.Cost, Type: typ}
	m.hints[hintID] = h
	return h, nil
}

func (m *Memory) DeleteHint(_ context.Context, challengeID, hintID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hints[hintID]; !ok || h.ChallengeID != challengeID {
		return ErrNotFound
	}
	delete(m.hints, hintID)
	return nil
}

func (m *Memory) Files(_ context.Context, challengeID int64) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return nil, err
	}
	out := []models.File{}
	for _, r := range m.files {
		if r.file.ChallengeID == challengeID {
			out = append(out, r.file)
		}
	}
	slices.SortFunc(out, func(a, b models.File) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// AddFile stores an uploaded attachment.
func (m *Memory) AddFile(_ context.Context, challengeID int64, name, typ string, content []byte) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkChallengeLocked(challengeID); err != nil {
		return models.File{}, err
	}
	id := m.id()
	f := models.File{
		ID:          id,
		ChallengeID: challengeID,
		Name:        name,
		Type:        typ,
		Location:    fmt.Sprintf("/admin/challenges/%d/file/%d", challengeID, id),
	}
	m.files[id] = fileRecord{file: f, content: slices.Clone(content)}
	return f, nil
}

// FileContent returns the attachment with its bytes.
func (m *Memory) FileContent(_ context.Context, challengeID, fileID int64) (models.File, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.files[fileID]
	if !ok || r.file.ChallengeID != challengeID {
		return models.File{}, nil, ErrNotFound
	}
	return r.file, slices.Clone(r.content), nil
}

func (m *Memory) DeleteFile(_ context.Context, challengeID, fileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.files[fileID]; !ok || r.file.ChallengeID != challengeID {
		return ErrNotFound
	}
	delete(m.files, fileID)
	return nil
}

// CreateNotification records an announcement.
func (m *Memory) CreateNotification(_ context.Context, nn models.NewNotification) models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := models.Notification{ID: m.id(), Title: nn.Title, Content: nn.Content, Date: m.now()}
	m.notifications = append(m.notifications, n)
	return n
}

// Notifications lists announcements, newest first.
func (m *Memory) Notifications(_ context.Context) []models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.notifications)
	slices.Reverse(out)
	return out
}
