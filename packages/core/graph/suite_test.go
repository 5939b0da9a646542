package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct{ id int }

func TestSuite_InstanceIsShared(t *testing.T) {
	var builds atomic.Int32
	suite := NewSuite("Users", func(ctx context.Context) (any, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &fixture{id: 1}, nil
	})

	var wg sync.WaitGroup
	instances := make([]any, 8)
	for i := range instances {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := suite.Instance(context.Background())
			assert.NoError(t, err)
			instances[i] = inst
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, inst := range instances {
		assert.Same(t, instances[0], inst)
	}
}

func TestSuite_FactoryErrorIsNotCached(t *testing.T) {
	calls := 0
	suite := NewSuite("Flaky", func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("db not ready")
		}
		return &fixture{id: calls}, nil
	})

	_, err := suite.Instance(context.Background())
	assert.EqualError(t, err, "db not ready")

	inst, err := suite.Instance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inst.(*fixture).id)
}

func TestSuite_NilFactory(t *testing.T) {
	inst, err := NewSuite("Plain", nil).Instance(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, inst)
}

func TestSuite_StartAndEnd(t *testing.T) {
	suite := NewSuite("S", nil)
	a := NewTest(suite, "a", noop)
	b := NewTest(suite, "b", noop)

	ended := 0
	suite.OnEnd(func(*Suite) { ended++ })

	require.NoError(t, a.Start())
	first := suite.StartTime()
	require.NoError(t, b.Start())
	assert.Equal(t, first, suite.StartTime())

	require.NoError(t, a.Success(""))
	assert.False(t, suite.Ended())
	_, err := suite.Duration()
	assert.ErrorIs(t, err, ErrNotTerminal)

	require.NoError(t, b.Fail("", assert.AnError))
	assert.True(t, suite.Ended())
	assert.Equal(t, 1, ended)

	d, err := suite.Duration()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d, time.Duration(0))
}
