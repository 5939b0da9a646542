package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(t *T) (any, error) { return nil, nil }

func TestNewTest_DefaultIdentifier(t *testing.T) {
	suite := NewSuite("Users", nil)
	tc := NewTest(suite, "Create", noop)

	assert.Equal(t, "Users::Create", tc.Identifier())
	assert.Equal(t, "Users::Create", tc.DisplayName())
	assert.Equal(t, StatePending, tc.State())
	assert.True(t, tc.IsReal())
	assert.Equal(t, []*Test{tc}, suite.Tests())

	helper := NewTest(nil, "seed", noop, Synthetic(), WithDisplayName("Seed data"))
	assert.Equal(t, "seed", helper.Identifier())
	assert.Equal(t, "Seed data", helper.DisplayName())
	assert.False(t, helper.IsReal())
}

func TestTest_Transitions(t *testing.T) {
	t.Run("pending to running to success", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		require.NoError(t, tc.Start())
		assert.True(t, tc.IsRunning())
		require.NoError(t, tc.Success("out"))
		assert.Equal(t, StateSuccess, tc.State())
		assert.Equal(t, "out", tc.Output())
		assert.Nil(t, tc.Failure())
	})

	t.Run("running to failure keeps the error", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		require.NoError(t, tc.Start())
		boom := assert.AnError
		require.NoError(t, tc.Fail("partial", boom))
		assert.Equal(t, StateFailure, tc.State())
		assert.Same(t, boom, tc.Failure())
	})

	t.Run("pending to skipped", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		require.NoError(t, tc.Skip())
		assert.Equal(t, StateSkipped, tc.State())
		assert.True(t, tc.IsCompleted())
	})

	t.Run("no transition out of a terminal state", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		require.NoError(t, tc.Skip())
		assert.ErrorIs(t, tc.Start(), ErrInvalidTransition)
		assert.ErrorIs(t, tc.Skip(), ErrInvalidTransition)
	})

	t.Run("running cannot be skipped", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		require.NoError(t, tc.Start())
		assert.ErrorIs(t, tc.Skip(), ErrInvalidTransition)
		assert.ErrorIs(t, tc.Start(), ErrInvalidTransition)
	})

	t.Run("pending cannot finish", func(t *testing.T) {
		tc := NewTest(nil, "a", noop)
		assert.ErrorIs(t, tc.Success(""), ErrInvalidTransition)
		assert.ErrorIs(t, tc.Fail("", assert.AnError), ErrInvalidTransition)
	})
}

func TestTest_Duration(t *testing.T) {
	tc := NewTest(nil, "a", noop)

	_, err := tc.Duration()
	assert.ErrorIs(t, err, ErrNotTerminal)

	require.NoError(t, tc.Start())
	_, err = tc.Duration()
	assert.ErrorIs(t, err, ErrNotTerminal)

	require.NoError(t, tc.Success(""))
	d, err := tc.Duration()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
}

func TestTest_CanBeRun(t *testing.T) {
	parent := NewTest(nil, "parent", noop)
	child := NewTest(nil, "child", noop)
	child.AddParent(parent)
	parent.AddChild(child, true)

	assert.True(t, parent.CanBeRun())
	assert.False(t, child.CanBeRun())

	require.NoError(t, parent.Start())
	assert.False(t, parent.CanBeRun())
	assert.False(t, child.CanBeRun())

	require.NoError(t, parent.Fail("", assert.AnError))
	assert.True(t, child.CanBeRun())
}

func TestTest_ArgumentsOrder(t *testing.T) {
	a := NewTest(nil, "A", noop)
	b := NewTest(nil, "B", noop)
	c := NewTest(nil, "C", noop, WithArguments("bound"))
	c.AddParent(a)
	c.AddParent(b)

	// B settles first, A second: declaration order still wins.
	c.AddArgument("y", b)
	c.AddArgument("x", a)

	assert.Equal(t, []any{"x", "y", "bound"}, c.Arguments())
}

func TestTest_ArgumentsFromNonParentAndReplace(t *testing.T) {
	a := NewTest(nil, "A", noop)
	other := NewTest(nil, "other", noop)
	c := NewTest(nil, "C", noop)
	c.AddParent(a)

	c.AddArgument(1, nil)
	c.AddArgument("from-other", other)
	c.AddArgument("first", a)
	c.AddArgument("second", a)
	c.AddArgument(2, nil)

	assert.Equal(t, []any{"second", 1, "from-other", 2}, c.Arguments())
}

func TestTest_Children(t *testing.T) {
	p := NewTest(nil, "p", noop)
	c1 := NewTest(nil, "c1", noop)
	c2 := NewTest(nil, "c2", noop)
	p.AddChild(c1, true)
	p.AddChild(c2, false)

	assert.Equal(t, []*Test{c1, c2}, p.Children(false))
	assert.Equal(t, []*Test{c1}, p.Children(true))
	assert.Equal(t, []Edge{{Test: c1, SkipIfFailed: true}, {Test: c2, SkipIfFailed: false}}, p.Edges())
}

func TestTest_Assertions(t *testing.T) {
	tc := NewTest(nil, "a", noop)
	tc.AddAssertion("status equals 200")
	tc.AddAssertion("body.id exists")

	assert.Equal(t, 2, tc.AssertionsCount())
	assert.Equal(t, []string{"status equals 200", "body.id exists"}, tc.Assertions())
}
