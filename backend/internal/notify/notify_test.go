package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFCM records every message posted to it.
type fakeFCM struct {
	mu       sync.Mutex
	messages []fcmMessage
	status   int
}

func (f *fakeFCM) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=test-key", r.Header.Get("Authorization"))

		var msg fcmMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))

		f.mu.Lock()
		f.messages = append(f.messages, msg)
		f.mu.Unlock()

		w.WriteHeader(f.status)
	}
}

func newTestSender(t *testing.T, status int) (*Sender, *fakeFCM) {
	t.Helper()
	fcm := &fakeFCM{status: status}
	ts := httptest.NewServer(fcm.handler(t))
	t.Cleanup(ts.Close)

	s := NewSender("test-key")
	s.endpoint = ts.URL
	return s, fcm
}

func TestSend(t *testing.T) {
	s, fcm := newTestSender(t, http.StatusOK)

	err := s.Send(context.Background(), "device-1", "hello", "world")
	require.NoError(t, err)

	require.Len(t, fcm.messages, 1)
	assert.Equal(t, "device-1", fcm.messages[0].To)
	assert.Equal(t, "hello", fcm.messages[0].Notification.Title)
	assert.Equal(t, "world", fcm.messages[0].Notification.Body)
}

func TestSend_DisabledWithoutKey(t *testing.T) {
	fcm := &fakeFCM{status: http.StatusOK}
	ts := httptest.NewServer(fcm.handler(t))
	defer ts.Close()

	s := NewSender("")
	s.endpoint = ts.URL

	require.NoError(t, s.Send(context.Background(), "device-1", "hello", "world"))
	assert.Empty(t, fcm.messages)
}

func TestSend_ServerError(t *testing.T) {
	s, _ := newTestSender(t, http.StatusInternalServerError)

	err := s.Send(context.Background(), "device-1", "hello", "world")
	assert.Error(t, err)
}

func TestSendAll_SwallowsFailures(t *testing.T) {
	s, fcm := newTestSender(t, http.StatusBadRequest)

	// Must not panic or propagate anything.
	s.SendAll(context.Background(), []string{"a", "b", "c"}, "hello", "world")

	fcm.mu.Lock()
	defer fcm.mu.Unlock()
	assert.Len(t, fcm.messages, 3)
}

func TestEventInvite_MessageText(t *testing.T) {
	s, fcm := newTestSender(t, http.StatusOK)

	s.EventInvite(context.Background(), []string{"device-1"}, "Picnic", "Weekend Crew")

	require.Len(t, fcm.messages, 1)
	assert.Equal(t, EventNotifTitle, fcm.messages[0].Notification.Title)
	assert.Equal(t,
		"You've been invited to Picnic for your Circle called Weekend Crew. Open the app for more details!",
		fcm.messages[0].Notification.Body,
	)
}

func TestNewFriend_MessageText(t *testing.T) {
	s, fcm := newTestSender(t, http.StatusOK)

	s.NewFriend(context.Background(), []string{"device-1", "device-2"}, "Ann")

	require.Len(t, fcm.messages, 2)
	for _, msg := range fcm.messages {
		assert.Equal(t, FriendNotifTitle, msg.Notification.Title)
		assert.Equal(t, "Ann has added you as a friend!", msg.Notification.Body)
	}
}
