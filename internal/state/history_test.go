package state

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryUndoRedoScenario(t *testing.T) {
	h := NewHistory(0)
	s, err := NewStore()
	require.NoError(t, err)
	h.Reset(s.Elements())

	a, b := img(0, 0, 10, 10), img(20, 20, 10, 10)
	require.NoError(t, s.Add(a))
	h.Push(s.Elements())
	require.NoError(t, s.Add(b))
	h.Push(s.Elements())

	els, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, []string{a.ID}, ids(els))

	els, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, []string{a.ID, b.ID}, ids(els))

	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestHistoryDedupe(t *testing.T) {
	h := NewHistory(10)
	els := []Element{img(0, 0, 1, 1)}
	assert.True(t, h.Push(els))
	assert.False(t, h.Push(els))
	assert.Equal(t, 1, h.Len())

	// Handles are not part of the snapshot.
	withHandle := []Element{els[0].Clone()}
	withHandle[0].Image.Handle = image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.False(t, h.Push(withHandle))
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)
	var els []Element
	first := img(0, 0, 1, 1)
	for i := 0; i < 60; i++ {
		el := first
		if i > 0 {
			el = img(float64(i), 0, 1, 1)
		}
		els = append(els, el)
		h.Push(els)
		assert.LessOrEqual(t, h.Len(), DefaultHistoryCapacity)
	}
	assert.Equal(t, DefaultHistoryCapacity, h.Len())
	assert.Equal(t, DefaultHistoryCapacity-1, h.Index())

	var oldest []Element
	for h.CanUndo() {
		els, ok := h.Undo()
		require.True(t, ok)
		oldest = els
	}
	// Pushes 1 through 10 were evicted.
	assert.Len(t, oldest, 11)
}

func TestHistoryPushDropsRedoBranch(t *testing.T) {
	h := NewHistory(10)
	h.Reset(nil)
	a, b, c := img(0, 0, 1, 1), img(1, 0, 1, 1), img(2, 0, 1, 1)
	h.Push([]Element{a})
	h.Push([]Element{a, b})
	h.Undo()
	h.Push([]Element{a, c})
	assert.False(t, h.CanRedo())
	assert.Equal(t, 3, h.Len())

	els, _ := h.Undo()
	assert.Equal(t, []string{a.ID}, ids(els))
}

func TestHistoryUndoAtStartIsNoop(t *testing.T) {
	h := NewHistory(5)
	_, ok := h.Undo()
	assert.False(t, ok)
	h.Reset(nil)
	_, ok = h.Undo()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Index())
}

func TestHistoryRoundTripRestoresStructure(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)
	s, err := NewStore()
	require.NoError(t, err)
	h.Reset(s.Elements())

	require.NoError(t, s.Add(NewText(Point{X: 3, Y: 4}, "hello", 20, "#111")))
	require.NoError(t, s.Add(NewArrow(Point{X: 0, Y: 0}, Point{X: 9, Y: 9}, "#f00", 4)))
	h.Push(s.Elements())
	before := s.Elements()
	require.NoError(t, s.Add(NewShape(ShapeEllipse, Rect{Width: 4, Height: 4}, "#fff", "#000", 1)))
	h.Push(s.Elements())

	_, ok := h.Undo()
	require.True(t, ok)
	redone, ok := h.Redo()
	require.True(t, ok)
	undone, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, before, undone)
	assert.Len(t, redone, 3)
}

func TestHistoryRandomSequenceUndoRedo(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		h := NewHistory(DefaultHistoryCapacity)
		s, err := NewStore()
		require.NoError(t, err)
		h.Reset(s.Elements())
		snapshots := [][]byte{mustSerialize(t, s.Elements())}

		steps := 1 + rng.Intn(DefaultHistoryCapacity-1)
		for len(snapshots) <= steps {
			els := s.Elements()
			switch op := rng.Intn(4); {
			case op == 0 || len(els) == 0:
				r := Rect{X: rng.Float64() * 500, Y: rng.Float64() * 500, Width: 1 + rng.Float64()*100, Height: 1 + rng.Float64()*100}
				require.NoError(t, s.Add(NewShape(ShapeRectangle, r, "#fff", "#000", 2)))
			case op == 1:
				require.NoError(t, s.Add(NewText(Point{X: rng.Float64() * 300, Y: rng.Float64() * 300}, "note", 18, "#111")))
			case op == 2:
				id := els[rng.Intn(len(els))].ID
				dx, dy := rng.Float64()*40-20, rng.Float64()*40-20
				require.NoError(t, s.Update(id, func(el *Element) { el.Translate(dx, dy) }))
			default:
				s.Remove(els[rng.Intn(len(els))].ID)
			}
			if h.Push(s.Elements()) {
				snapshots = append(snapshots, mustSerialize(t, s.Elements()))
			}
		}

		for i := len(snapshots) - 2; i >= 0; i-- {
			els, ok := h.Undo()
			require.True(t, ok, "round %d undo to %d", round, i)
			assert.Equal(t, string(snapshots[i]), string(mustSerialize(t, els)))
		}
		_, ok := h.Undo()
		assert.False(t, ok)
		for i := 1; i < len(snapshots); i++ {
			els, ok := h.Redo()
			require.True(t, ok, "round %d redo to %d", round, i)
			assert.Equal(t, string(snapshots[i]), string(mustSerialize(t, els)))
		}
		_, ok = h.Redo()
		assert.False(t, ok)
	}
}

func mustSerialize(t *testing.T, els []Element) []byte {
	t.Helper()
	data, err := Serialize(els)
	require.NoError(t, err)
	return data
}
