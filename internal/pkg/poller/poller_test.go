package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/test/mocks"
	"github.com/edugrade/segma/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	calls := 0
	res, err := Poll(context.Background(), time.Millisecond, 10, func(ctx context.Context) (int, bool, error) {
		calls++
		return calls, calls == 3, nil
	})
	require.Nil(t, err)
	assert.Equal(t, 3, res)
	assert.Equal(t, 3, calls)
}

func TestPoll_Exhausted(t *testing.T) {
	calls := 0
	res, err := Poll(context.Background(), time.Millisecond, 5, func(ctx context.Context) (int, bool, error) {
		calls++
		return calls, false, nil
	})
	require.True(t, errors.Is(err, ErrExhausted), "err = %v", err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, res)
}

func TestPoll_FailFast(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), time.Millisecond, 10, func(ctx context.Context) (int, bool, error) {
		calls++
		return 0, false, errors.New("olia")
	})
	require.NotNil(t, err)
	assert.Equal(t, 1, calls)
}

func TestPoll_Cancel(t *testing.T) {
	ctx, cancelF := context.WithCancel(context.Background())
	cancelF()
	calls := 0
	_, err := Poll(ctx, time.Minute, 10, func(ctx context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	require.NotNil(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestWaitActive(t *testing.T) {
	mediaMock := &mocks.Media{}
	mediaMock.On("GetFile", mock.Anything, "files/olia").Return(
		&api.File{Name: "files/olia", State: api.StateProcessing}, nil).Twice()
	mediaMock.On("GetFile", mock.Anything, "files/olia").Return(
		&api.File{Name: "files/olia", State: api.StateActive}, nil).Once()

	res, err := WaitActive(context.Background(), mediaMock,
		&api.File{Name: "files/olia", State: api.StateProcessing},
		Opts{Interval: time.Millisecond, Attempts: 10})
	require.Nil(t, err)
	assert.Equal(t, api.StateActive, res.State)
	mediaMock.AssertNumberOfCalls(t, "GetFile", 3)
}

func TestWaitActive_AlreadyActive(t *testing.T) {
	mediaMock := &mocks.Media{}
	res, err := WaitActive(context.Background(), mediaMock,
		&api.File{Name: "files/olia", State: api.StateActive},
		Opts{Interval: time.Millisecond, Attempts: 10})
	require.Nil(t, err)
	assert.Equal(t, api.StateActive, res.State)
	mediaMock.AssertNumberOfCalls(t, "GetFile", 0)
}

func TestWaitActive_Exhausted(t *testing.T) {
	mediaMock := &mocks.Media{}
	mediaMock.On("GetFile", mock.Anything, "files/olia").Return(
		&api.File{Name: "files/olia", State: api.StateProcessing}, nil)

	_, err := WaitActive(context.Background(), mediaMock,
		&api.File{Name: "files/olia", State: api.StateProcessing},
		Opts{Interval: time.Millisecond, Attempts: 3})
	require.NotNil(t, err)
	var errTimeout *utils.ErrProcessingTimeout
	require.True(t, errors.As(err, &errTimeout))
	assert.Equal(t, api.StateProcessing, errTimeout.LastState)
	mediaMock.AssertNumberOfCalls(t, "GetFile", 3)
}

func TestWaitActive_Failed(t *testing.T) {
	mediaMock := &mocks.Media{}
	mediaMock.On("GetFile", mock.Anything, "files/olia").Return(
		&api.File{Name: "files/olia", State: api.StateFailed}, nil)

	_, err := WaitActive(context.Background(), mediaMock,
		&api.File{Name: "files/olia", State: api.StateProcessing},
		Opts{Interval: time.Millisecond, Attempts: 10})
	require.NotNil(t, err)
	var errTimeout *utils.ErrProcessingTimeout
	require.True(t, errors.As(err, &errTimeout))
	assert.Equal(t, api.StateFailed, errTimeout.LastState)
	mediaMock.AssertNumberOfCalls(t, "GetFile", 1)
}

func TestWaitActive_GetFails(t *testing.T) {
	mediaMock := &mocks.Media{}
	mediaMock.On("GetFile", mock.Anything, "files/olia").Return(nil, errors.New("olia"))

	_, err := WaitActive(context.Background(), mediaMock,
		&api.File{Name: "files/olia", State: api.StateProcessing},
		Opts{Interval: time.Millisecond, Attempts: 10})
	require.NotNil(t, err)
	var errTimeout *utils.ErrProcessingTimeout
	assert.False(t, errors.As(err, &errTimeout))
	mediaMock.AssertNumberOfCalls(t, "GetFile", 1)
}
