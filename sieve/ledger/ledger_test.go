package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIsIdempotent(t *testing.T) {
	l := New()

	a := l.Add("dataset/a.png")
	again := l.Add("dataset/a.png")

	assert.Same(t, a, again)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, Pending, a.State)
	assert.True(t, l.InDataset("dataset/a.png"))
}

func TestPathsLexicographic(t *testing.T) {
	l := New()
	for _, p := range []string{"dataset/c.png", "dataset/a.png", "dataset/b10.png", "dataset/b2.png"} {
		l.Add(p)
	}

	assert.Equal(t, []string{
		"dataset/a.png",
		"dataset/b10.png",
		"dataset/b2.png",
		"dataset/c.png",
	}, l.Paths())
}

func TestTransitionAtMostOnce(t *testing.T) {
	l := New()
	l.Add("dataset/a.png")

	require.NoError(t, l.Transition("dataset/a.png", Nonessential, "nonessential/a.png"))

	rec, ok := l.Get("dataset/a.png")
	require.True(t, ok)
	assert.Equal(t, Nonessential, rec.State)
	assert.Equal(t, "nonessential/a.png", rec.Destination)
	assert.False(t, l.InDataset("dataset/a.png"))

	err := l.Transition("dataset/a.png", Essential, "essentials/a.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPending))
	assert.Equal(t, Nonessential, rec.State)
}

func TestTransitionRejectsNonTerminal(t *testing.T) {
	l := New()
	l.Add("dataset/a.png")

	err := l.Transition("dataset/a.png", Errored, "")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	err = l.Transition("dataset/missing.png", Essential, "")
	assert.ErrorIs(t, err, ErrUnknownRecord)
}

func TestErroredStaysInDataset(t *testing.T) {
	l := New()
	l.Add("dataset/a.png")

	boom := errors.New("corrupt")
	require.NoError(t, l.MarkErrored("dataset/a.png", boom))
	require.NoError(t, l.MarkErrored("dataset/a.png", boom))

	rec, _ := l.Get("dataset/a.png")
	assert.Equal(t, Errored, rec.State)
	assert.Equal(t, 2, rec.Errors)
	assert.Equal(t, boom, rec.LastError)
	assert.True(t, l.InDataset("dataset/a.png"))

	// Errored frames can still be swept to essentials
	require.NoError(t, l.Transition("dataset/a.png", Essential, "essentials/a.png"))
	assert.ErrorIs(t, l.MarkErrored("dataset/a.png", boom), ErrNotPending)
}

func TestRemainingAndCounts(t *testing.T) {
	l := New()
	for _, p := range []string{"d/a.png", "d/b.png", "d/c.png", "d/e.png"} {
		l.Add(p)
	}
	require.NoError(t, l.Transition("d/b.png", Nonessential, ""))
	require.NoError(t, l.Transition("d/a.png", Essential, ""))
	require.NoError(t, l.MarkErrored("d/e.png", errors.New("x")))

	assert.Equal(t, []string{"d/c.png", "d/e.png"}, l.Remaining())
	assert.Equal(t, 2, l.InDatasetCount())

	counts := l.Counts()
	assert.Equal(t, 1, counts[Pending])
	assert.Equal(t, 1, counts[Errored])
	assert.Equal(t, 1, counts[Essential])
	assert.Equal(t, 1, counts[Nonessential])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "essential", Essential.String())
	assert.Equal(t, "nonessential", Nonessential.String())
	assert.Equal(t, "unknown", State(42).String())
}
