package state

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeBoardStripsHandles(t *testing.T) {
	el := img(0, 0, 10, 10)
	el.Image.Handle = image.NewRGBA(image.Rect(0, 0, 1, 1))
	v := NewVideo("https://example.com/v.mp4", Rect{Width: 10, Height: 10})
	v.Video.Handle = &MediaInfo{Source: v.Video.VideoURL, ContentType: "video/mp4"}
	b := Board{ID: "b1", Name: "one", Elements: []Element{el, v}}

	p := SerializeBoard(b)
	assert.Nil(t, p.Elements[0].Image.Handle)
	assert.Nil(t, p.Elements[1].Video.Handle)
	assert.NotNil(t, b.Elements[0].Image.Handle, "source board is untouched")

	restored, err := RestoreBoard(p)
	require.NoError(t, err)
	assert.Equal(t, "b1", restored.ID)
	assert.False(t, restored.Elements[0].Resolved())
}

func TestWorkspaceSwitchSnapshotsCurrent(t *testing.T) {
	ws := NewWorkspace("first")
	first := ws.ActiveID()
	second := ws.NewBoard("second")
	assert.Equal(t, first, ws.ActiveID())

	current := []Element{img(1, 2, 3, 4)}
	got, err := ws.Switch(second.ID, current)
	require.NoError(t, err)
	assert.Empty(t, got.Elements)
	assert.Equal(t, second.ID, ws.ActiveID())

	back, err := ws.Switch(first, nil)
	require.NoError(t, err)
	require.Len(t, back.Elements, 1)
	assert.Equal(t, current[0].ID, back.Elements[0].ID)

	_, err = ws.Switch("nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkspaceRenameAndDelete(t *testing.T) {
	ws := NewWorkspace("only")
	id := ws.ActiveID()
	require.NoError(t, ws.Rename(id, "renamed"))
	active, err := ws.Active()
	require.NoError(t, err)
	assert.Equal(t, "renamed", active.Name)

	assert.ErrorIs(t, ws.Delete(id), ErrNoActiveBoard)

	other := ws.NewBoard("other")
	require.NoError(t, ws.Delete(id))
	assert.Equal(t, other.ID, ws.ActiveID())
	assert.Len(t, ws.Boards(), 1)
}

func TestWorkspaceSaveLoad(t *testing.T) {
	ws := NewWorkspace("main")
	a, b := img(0, 0, 10, 10), img(30, 30, 10, 10)
	a.Image.Handle = image.NewRGBA(image.Rect(0, 0, 1, 1))
	s, err := NewStore(a, b)
	require.NoError(t, err)
	g, err := s.Group("pair", a.ID, b.ID)
	require.NoError(t, err)
	ws.NewBoard("spare")

	var buf bytes.Buffer
	require.NoError(t, SaveWorkspace(&buf, ws, s.Elements()))
	assert.NotContains(t, buf.String(), "Handle")

	loaded, err := LoadWorkspace(&buf)
	require.NoError(t, err)
	assert.Len(t, loaded.Boards(), 2)
	active, err := loaded.Active()
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)
	require.Len(t, active.Elements, 3)
	assert.Equal(t, g.ID, active.Elements[0].ParentID)
	assert.Nil(t, active.Elements[0].Image.Handle)
}

func TestLoadWorkspaceRejectsEmpty(t *testing.T) {
	_, err := LoadWorkspace(bytes.NewBufferString(`{"version":1,"boards":[]}`))
	assert.ErrorIs(t, err, ErrNoActiveBoard)
	_, err = LoadWorkspace(bytes.NewBufferString(`{`))
	assert.Error(t, err)
}
