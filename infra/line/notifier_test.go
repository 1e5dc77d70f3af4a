package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path string
	auth string
	body map[string]any
}

func newAPI(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		got = append(got, c)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"sentMessages":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func firstText(t *testing.T, body map[string]any) string {
	t.Helper()
	msgs, ok := body["messages"].([]any)
	require.True(t, ok, "messages missing in %v", body)
	require.Len(t, msgs, 1)
	m := msgs[0].(map[string]any)
	assert.Equal(t, "text", m["type"])
	return m["text"].(string)
}

func TestReplyAndPush(t *testing.T) {
	srv, got := newAPI(t, http.StatusOK)
	n, err := NewNotifier(Config{ChannelAccessToken: "tok", ChannelSecret: "s", Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Reply(context.Background(), "rt", "もう一度駅名を入力してください。"))
	require.NoError(t, n.Push(context.Background(), "U1", "終電が過ぎています。"))

	require.Len(t, *got, 2)
	reply, push := (*got)[0], (*got)[1]
	assert.Equal(t, "/v2/bot/message/reply", reply.path)
	assert.Equal(t, "Bearer tok", reply.auth)
	assert.Equal(t, "rt", reply.body["replyToken"])
	assert.Equal(t, "もう一度駅名を入力してください。", firstText(t, reply.body))

	assert.Equal(t, "/v2/bot/message/push", push.path)
	assert.Equal(t, "U1", push.body["to"])
	assert.Equal(t, "終電が過ぎています。", firstText(t, push.body))
}

func TestPushError(t *testing.T) {
	srv, _ := newAPI(t, http.StatusBadRequest)
	n, err := NewNotifier(Config{ChannelAccessToken: "tok", Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	assert.Error(t, n.Push(context.Background(), "U1", "x"))
}

func TestCancelledContext(t *testing.T) {
	n, err := NewNotifier(Config{ChannelAccessToken: "tok", Endpoint: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Push(ctx, "U1", "x"), context.Canceled)
}

func TestPushHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	n, err := NewNotifier(Config{ChannelAccessToken: "tok", Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = n.Push(ctx, "U1", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{ChannelSecret: "s"}.Validate())
	assert.NoError(t, Config{ChannelSecret: "s", ChannelAccessToken: "t"}.Validate())
}
