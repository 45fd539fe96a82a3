// Package dispatch sends validated commands to the external
// spreadsheet-automation webhook.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alexanderramin/hashi/internal/command"
)

// ErrSinkUnavailable indicates the sink endpoint could not be reached at the
// network level, as opposed to the sink responding with a failure status.
var ErrSinkUnavailable = errors.New("sink endpoint unavailable")

// SinkRejectedError is returned when the sink responds with a non-2xx status.
type SinkRejectedError struct {
	Status  int
	Snippet string
}

func (e *SinkRejectedError) Error() string {
	return fmt.Sprintf("sink rejected command with status %d: %s", e.Status, e.Snippet)
}

// maxSnippetBytes bounds how much of the sink's echoed response body is
// surfaced to callers and logs.
const maxSnippetBytes = 1000

// Result reports the outcome of one sink call.
type Result struct {
	Status  int
	Snippet string
	// NeedsFilter is set on list calls when the sink reports that no
	// caller filter was given.
	NeedsFilter bool
}

// Dispatcher sends commands to the sink. One outbound call per invocation,
// no retry; retry policy belongs to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (Result, error)
	ListTasks(ctx context.Context, assignee string) (Result, error)
}

type webhookDispatcher struct {
	url   string
	token string
	http  *http.Client
}

// NewWebhook creates a Dispatcher that POSTs to the sink webhook URL,
// stamping the shared token onto every outbound payload. timeout bounds each
// call; zero means 20 seconds.
func NewWebhook(url, token string, timeout time.Duration) Dispatcher {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &webhookDispatcher{
		url:   url,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// sinkPayload is the wire shape the sink verifies and persists.
type sinkPayload struct {
	Token  string            `json:"token"`
	Intent string            `json:"intent"`
	Sheet  string            `json:"sheet"`
	Body   map[string]string `json:"body"`
}

// listResponse is the subset of the sink's list reply the server inspects.
type listResponse struct {
	NeedsFilter bool `json:"needs_filter"`
}

func (d *webhookDispatcher) Dispatch(ctx context.Context, cmd command.Command) (Result, error) {
	return d.post(ctx, sinkPayload{
		Token:  d.token,
		Intent: cmd.Intent,
		Sheet:  cmd.Sheet,
		Body:   cmd.Body,
	})
}

func (d *webhookDispatcher) ListTasks(ctx context.Context, assignee string) (Result, error) {
	body := map[string]string{}
	if assignee != "" {
		body[command.FieldAssignee] = assignee
	}
	res, err := d.post(ctx, sinkPayload{
		Token:  d.token,
		Intent: command.IntentListTasks,
		Sheet:  command.DefaultSheet,
		Body:   body,
	})
	if err != nil {
		return res, err
	}

	var list listResponse
	if json.Unmarshal([]byte(res.Snippet), &list) == nil && list.NeedsFilter {
		res.NeedsFilter = true
	}
	return res, nil
}

func (d *webhookDispatcher) post(ctx context.Context, payload sinkPayload) (Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("creating sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	defer resp.Body.Close()

	snippet := readSnippet(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &SinkRejectedError{Status: resp.StatusCode, Snippet: snippet}
	}

	return Result{Status: resp.StatusCode, Snippet: snippet}, nil
}

// readSnippet reads at most maxSnippetBytes of the echoed response body.
func readSnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxSnippetBytes))
	if err != nil {
		return ""
	}
	return string(data)
}
