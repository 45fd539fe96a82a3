package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/hashi/internal/command"
)

func testCommand() command.Command {
	return command.Command{
		Intent: "add_task",
		Sheet:  "タスク管理",
		Body: map[string]string{
			command.FieldContent:   "資料作成",
			command.FieldAssignee:  "山田",
			command.FieldDueDate:   "2025-12-05",
			command.FieldAddedDate: "2025-12-01",
		},
	}
}

func TestWebhook_Dispatch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload sinkPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "shared-secret", payload.Token)
		assert.Equal(t, "add_task", payload.Intent)
		assert.Equal(t, "タスク管理", payload.Sheet)
		assert.Equal(t, "山田", payload.Body[command.FieldAssignee])

		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	d := NewWebhook(srv.URL, "shared-secret", 0)
	res, err := d.Dispatch(context.Background(), testCommand())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"result":"ok"}`, res.Snippet)
}

func TestWebhook_Dispatch_TruncatesEchoedBody(t *testing.T) {
	long := strings.Repeat("x", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long))
	}))
	defer srv.Close()

	d := NewWebhook(srv.URL, "tok", 0)
	res, err := d.Dispatch(context.Background(), testCommand())

	require.NoError(t, err)
	assert.Len(t, res.Snippet, maxSnippetBytes)
}

func TestWebhook_Dispatch_SinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewWebhook(srv.URL, "tok", 0)
	_, err := d.Dispatch(context.Background(), testCommand())

	var rejected *SinkRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusForbidden, rejected.Status)
	assert.Contains(t, rejected.Snippet, "bad token")
}

func TestWebhook_Dispatch_SinkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	d := NewWebhook(srv.URL, "tok", 0)
	_, err := d.Dispatch(context.Background(), testCommand())

	assert.ErrorIs(t, err, ErrSinkUnavailable)
}

func TestWebhook_ListTasks_ForwardsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload sinkPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, command.IntentListTasks, payload.Intent)
		assert.Equal(t, "山田", payload.Body[command.FieldAssignee])

		w.Write([]byte(`{"tasks":[{"内容":"資料作成"}]}`))
	}))
	defer srv.Close()

	d := NewWebhook(srv.URL, "tok", 0)
	res, err := d.ListTasks(context.Background(), "山田")

	require.NoError(t, err)
	assert.False(t, res.NeedsFilter)
	assert.Contains(t, res.Snippet, "資料作成")
}

func TestWebhook_ListTasks_NeedsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload sinkPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Empty(t, payload.Body)

		w.Write([]byte(`{"needs_filter": true}`))
	}))
	defer srv.Close()

	d := NewWebhook(srv.URL, "tok", 0)
	res, err := d.ListTasks(context.Background(), "")

	require.NoError(t, err)
	assert.True(t, res.NeedsFilter)
}
