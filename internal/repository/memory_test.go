package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CTFClient/internal/models"
)

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alice, err := m.CreateUser(ctx, models.NewUser{Name: "alice", Email: "alice@ctf.io"}, []byte("hash"), "user")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)
	assert.Equal(t, "user", alice.Type)

	_, err = m.CreateUser(ctx, models.NewUser{Name: "again", Email: "alice@ctf.io"}, nil, "user")
	assert.ErrorIs(t, err, ErrConflict)

	got, hash, err := m.UserByEmail(ctx, "alice@ctf.io")
	require.NoError(t, err)
	assert.Equal(t, alice, got)
	assert.Equal(t, []byte("hash"), hash)

	_, _, err = m.UserByEmail(ctx, "nobody@ctf.io")
	assert.ErrorIs(t, err, ErrNotFound)

	banned := true
	upd, err := m.UpdateUser(ctx, alice.ID, models.UserUpdate{Banned: &banned})
	require.NoError(t, err)
	assert.True(t, upd.Banned)
	assert.Equal(t, "alice", upd.Name)

	missingTeam := int64(99)
	_, err = m.UpdateUser(ctx, alice.ID, models.UserUpdate{TeamID: &missingTeam})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeleteUser(ctx, alice.ID))
	assert.ErrorIs(t, m.DeleteUser(ctx, alice.ID), ErrNotFound)
	assert.Empty(t, m.Users(ctx))
}

func TestMemory_TeamsAndMembers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	red, err := m.CreateTeam(ctx, models.NewTeam{Name: "red"})
	require.NoError(t, err)
	blue, err := m.CreateTeam(ctx, models.NewTeam{Name: "blue"})
	require.NoError(t, err)
	_, err = m.CreateTeam(ctx, models.NewTeam{Name: "red"})
	assert.ErrorIs(t, err, ErrConflict)

	u, err := m.CreateUser(ctx, models.NewUser{Name: "bob", Email: "bob@ctf.io"}, nil, "user")
	require.NoError(t, err)
	_, err = m.UpdateUser(ctx, u.ID, models.UserUpdate{TeamID: &red.ID})
	require.NoError(t, err)

	members, err := m.TeamMembers(ctx, red.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].Name)

	hidden := true
	_, err = m.UpdateTeam(ctx, blue.ID, models.TeamUpdate{Hidden: &hidden})
	require.NoError(t, err)
	assert.Len(t, m.Teams(ctx, false), 1)
	assert.Len(t, m.Teams(ctx, true), 2)

	_, err = m.UpdateTeam(ctx, blue.ID, models.TeamUpdate{Name: &red.Name})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, m.DeleteTeam(ctx, red.ID))
	got, err := m.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TeamID)
	_, err = m.TeamMembers(ctx, red.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ChallengeChildren(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c, err := m.CreateChallenge(ctx, models.NewChallenge{Name: "warmup", Value: 100, State: models.StateVisible, Type: models.TypeStandard})
	require.NoError(t, err)

	flag, err := m.SaveFlag(ctx, c.ID, 0, models.NewFlag{Content: "ctf{a}", Type: "static"})
	require.NoError(t, err)
	edited, err := m.SaveFlag(ctx, c.ID, flag.ID, models.NewFlag{Content: "ctf{b}", Type: "static"})
	require.NoError(t, err)
	assert.Equal(t, flag.ID, edited.ID)
	assert.Equal(t, "ctf{b}", edited.Content)
	_, err = m.SaveFlag(ctx, c.ID+100, 0, models.NewFlag{Content: "x", Type: "static"})
	assert.ErrorIs(t, err, ErrNotFound)

	hint, err := m.SaveHint(ctx, c.ID, 0, models.NewHint{Content: "look", Cost: 5})
	require.NoError(t, err)
	assert.Equal(t, "standard", hint.Type)

	f, err := m.AddFile(ctx, c.ID, "task.zip", "challenge", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/challenges/1/file/4", f.Location)
	_, content, err := m.FileContent(ctx, c.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), content)

	require.NoError(t, m.SetFrozen(ctx, 0, true))
	got, err := m.Challenge(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Freeze)
	require.NoError(t, m.SetFrozen(ctx, c.ID, false))
	assert.ErrorIs(t, m.SetFrozen(ctx, 42, true), ErrNotFound)

	require.NoError(t, m.DeleteChallenge(ctx, c.ID))
	_, err = m.Flags(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteFlag(ctx, c.ID, flag.ID), ErrNotFound)
	assert.ErrorIs(t, m.DeleteHint(ctx, c.ID, hint.ID), ErrNotFound)
	assert.ErrorIs(t, m.DeleteFile(ctx, c.ID, f.ID), ErrNotFound)
}

func TestMemory_Notifications(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first := m.CreateNotification(ctx, models.NewNotification{Title: "Start", Content: "go"})
	second := m.CreateNotification(ctx, models.NewNotification{Title: "Hint", Content: "look"})

	list := m.Notifications(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}
