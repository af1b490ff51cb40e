// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taskforge/taskforge/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCompose(t *testing.T) {
	t.Run("welcome", func(t *testing.T) {
		msg, err := Compose(KindWelcome, DefaultFrom, "maria@example.com", "Maria")
		require.NoError(t, err)
		assert.Equal(t, "maria@example.com", msg.To)
		assert.Equal(t, DefaultFrom, msg.From)
		assert.Equal(t, "Thanks for joining in.!", msg.Subject)
		assert.Contains(t, msg.Text, "Welcome to the app, Maria.")
	})

	t.Run("cancellation", func(t *testing.T) {
		msg, err := Compose(KindCancellation, "ops@example.com", "ifti@example.com", "Ifti")
		require.NoError(t, err)
		assert.Equal(t, "Cancelation message", msg.Subject)
		assert.Equal(t, "Sad Ifti you are no longer with us. Can you please tell us about your cancellation", msg.Text)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Compose(Kind("spam"), DefaultFrom, "a@example.com", "A")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "NOTIFY_UNKNOWN_KIND")
	})
}

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	err      error
	block    chan struct{}
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordNotification(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[kind+"/"+outcome]++
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewDispatcher_NilDependencies(t *testing.T) {
	_, err := NewDispatcher(nil, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sender is required")

	_, err = NewDispatcher(&recordingSender{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	sender := &recordingSender{}
	rec := &countingRecorder{}
	d, err := NewDispatcher(sender, discardLogger(), WithFrom("team@example.com"), WithRecorder(rec))
	require.NoError(t, err)

	d.Notify(context.Background(), KindWelcome, "maria@example.com", "Maria")
	require.NoError(t, d.Close(context.Background()))

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "team@example.com", msgs[0].From)
	assert.Equal(t, 1, rec.get("welcome/sent"))
}

func TestDispatcher_FailureIsNotPropagated(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	sender := &recordingSender{err: errors.New("smtp down")}
	rec := &countingRecorder{}
	d, err := NewDispatcher(sender, logger, WithRecorder(rec))
	require.NoError(t, err)

	d.Notify(context.Background(), KindCancellation, "ifti@example.com", "Ifti")
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 1, rec.get("cancellation/failed"))
	assert.Contains(t, logs.String(), "notification delivery failed")
}

func TestDispatcher_SurvivesRequestCancellation(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d, err := NewDispatcher(sender, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, KindWelcome, "maria@example.com", "Maria")
	cancel()
	close(sender.block)

	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, sender.sent(), 1)
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	sender := &recordingSender{}
	rec := &countingRecorder{}
	d, err := NewDispatcher(sender, discardLogger(), WithRecorder(rec))
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))

	d.Notify(context.Background(), KindWelcome, "maria@example.com", "Maria")

	assert.Empty(t, sender.sent())
	assert.Equal(t, 1, rec.get("welcome/dropped"))
}

func TestDispatcher_CloseTimesOut(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d, err := NewDispatcher(sender, discardLogger())
	require.NoError(t, err)

	d.Notify(context.Background(), KindWelcome, "maria@example.com", "Maria")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = d.Close(ctx)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_DRAIN_TIMEOUT")

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))
}

// sentMail is the subset of the v3 mail body the tests inspect.
type sentMail struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func TestSendGridSender_Send(t *testing.T) {
	var got sentMail
	var auth, path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		method = r.Method
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewSendGridSender(srv.Client(), srv.URL+"/v3/mail/send", "key-123")
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		To: "maria@example.com", From: DefaultFrom, Subject: "Hi", Text: "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Bearer key-123", auth)
	require.Len(t, got.Personalizations, 1)
	require.Len(t, got.Personalizations[0].To, 1)
	assert.Equal(t, "maria@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, DefaultFrom, got.From.Email)
	assert.Equal(t, "Hi", got.Subject)
	require.Len(t, got.Content, 1)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Equal(t, "Hello", got.Content[0].Value)
}

func TestSendGridSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewSendGridSender(srv.Client(), srv.URL+"/v3/mail/send", "key")
	require.NoError(t, err)
	sender.baseDelay = time.Millisecond

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Text: "x"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendGridSender_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender, err := NewSendGridSender(srv.Client(), srv.URL+"/v3/mail/send", "bad-key")
	require.NoError(t, err)
	sender.baseDelay = time.Millisecond

	err = sender.Send(context.Background(), Message{To: "a@example.com", Text: "x"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_SEND_FAILED")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewSendGridSender_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		code string
	}{
		{name: "missing key", url: "", key: "", code: "NOTIFY_API_KEY_REQUIRED"},
		{name: "relative url", url: "/v3/mail/send", key: "key", code: "NOTIFY_API_URL_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSendGridSender(nil, tt.url, tt.key)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestNewSendGridSender_DefaultURL(t *testing.T) {
	sender, err := NewSendGridSender(nil, "", "key")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, sender.request.BaseURL)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi"}))
	assert.Contains(t, buf.String(), "a@example.com")
}
