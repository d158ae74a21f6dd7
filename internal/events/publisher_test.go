package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

type MockConn struct{ mock.Mock }

func (m *MockConn) Publish(subject string, data []byte) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

func (m *MockConn) Close() {
	m.Called()
}

func TestPublisher_KosChanged(t *testing.T) {
	conn := new(MockConn)
	p := &Publisher{conn: conn, logger: zap.NewNop()}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var sent []byte
	conn.On("Publish", "kos.archived", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]byte) }).
		Return(nil).Once()

	p.KosChanged(context.Background(), lifecycle.Event{Type: lifecycle.EventArchived, KosID: 7, PostID: 70, ActorID: 1, At: at})

	conn.AssertExpectations(t)
	var env Envelope
	require.NoError(t, json.Unmarshal(sent, &env))
	assert.Equal(t, int64(7), env.KosID)
	assert.Equal(t, lifecycle.EventArchived, env.Type)
	assert.NotEmpty(t, env.ID)
	assert.True(t, at.Equal(env.At))
}

func TestPublisher_ErrorIsSwallowed(t *testing.T) {
	conn := new(MockConn)
	p := &Publisher{conn: conn, logger: zap.NewNop()}

	conn.On("Publish", "kos.deleted", mock.Anything).Return(errors.New("nats: connection closed")).Once()

	assert.NotPanics(t, func() {
		p.KosChanged(context.Background(), lifecycle.Event{Type: lifecycle.EventDeleted, KosID: 3})
	})
	conn.AssertExpectations(t)
}
