package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

type mockConnector struct {
	errs  []error
	calls int
}

func (m *mockConnector) Connect(context.Context) error {
	m.calls++
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func connectionError() error {
	return &DriverError{Kind: KindConnection, Message: "could not connect", Err: errors.New("connection refused")}
}

func TestConnectWithRetry(t *testing.T) {
	tt := []struct {
		Name     string
		Errs     []error
		Calls    int
		Expected func(t *testing.T, err error)
	}{
		{
			Name:  "FirstAttempt",
			Calls: 1,
			Expected: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			Name:  "RecoversAfterFailures",
			Errs:  []error{connectionError(), connectionError()},
			Calls: 3,
			Expected: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			Name:  "GivesUp",
			Errs:  []error{connectionError(), connectionError(), connectionError(), connectionError()},
			Calls: 3,
			Expected: func(t *testing.T, err error) {
				assert.True(t, IsKind(err, KindConnection))
			},
		},
		{
			Name:  "ConfigurationIsPermanent",
			Errs:  []error{&DriverError{Kind: KindConfiguration, Message: "no connection source", Err: ErrNotConfigured}},
			Calls: 1,
			Expected: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotConfigured)
			},
		},
		{
			Name:  "ClosedDriverIsPermanent",
			Errs:  []error{&DriverError{Kind: KindConnection, Message: "connect", Err: ErrDriverClosed}},
			Calls: 1,
			Expected: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDriverClosed)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			c := &mockConnector{errs: tc.Errs}
			err := ConnectWithRetry(context.Background(), c, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2))
			tc.Expected(t, err)
			assert.Equal(t, tc.Calls, c.calls)
		})
	}
}

func TestConnectWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &mockConnector{errs: []error{connectionError(), connectionError()}}
	err := ConnectWithRetry(ctx, c, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.calls)
}

func TestDefaultBackOff(t *testing.T) {
	b := DefaultBackOff()
	for i := 0; i < 3; i++ {
		assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
