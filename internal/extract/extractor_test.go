package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/hashi/internal/command"
	"github.com/alexanderramin/hashi/internal/llm"
)

// mockClient returns a fixed response for testing.
type mockClient struct {
	response string
	err      error
	lastReq  llm.GenerateRequest
}

func (m *mockClient) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.GenerateResponse{Text: m.response, Model: "test-model"}, nil
}

func (m *mockClient) Available(_ context.Context) bool { return m.err == nil }

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	at, err := time.Parse("2006-01-02", "2025-12-01")
	require.NoError(t, err)
	return func() time.Time { return at }
}

func TestExtractor_Extract_CompleteCommand(t *testing.T) {
	client := &mockClient{response: `{
		"intent": "add_task",
		"sheet": "タスク管理",
		"body": {"内容": "資料作成", "担当": "山田", "期限": "2025-12-02", "追加日": ""}
	}`}

	ext := New(client, fixedClock(t))
	cmd, err := ext.Extract(context.Background(), "山田さんに明日までに資料作成を頼んで")

	require.NoError(t, err)
	assert.Equal(t, "add_task", cmd.Intent)
	assert.Equal(t, "タスク管理", cmd.Sheet)
	assert.Equal(t, "資料作成", cmd.Body[command.FieldContent])
	assert.Equal(t, "山田", cmd.Body[command.FieldAssignee])
	assert.Equal(t, "2025-12-02", cmd.Body[command.FieldDueDate])
}

func TestExtractor_Extract_SendsSchemaAndPrompt(t *testing.T) {
	client := &mockClient{response: `{"intent":"add_task","sheet":"タスク管理","body":{"内容":"","担当":"","期限":"","追加日":""}}`}

	ext := New(client, fixedClock(t))
	_, err := ext.Extract(context.Background(), "何か")

	require.NoError(t, err)
	assert.Equal(t, llm.TaskExtract, client.lastReq.Task)
	assert.Equal(t, "何か", client.lastReq.UserPrompt)
	assert.Contains(t, client.lastReq.SystemPrompt, command.DefaultSheet)
	require.NotNil(t, client.lastReq.Schema)
	assert.Equal(t, "SheetCommand", client.lastReq.Schema.Name)
}

func TestExtractor_Extract_ServerStampsAddedDate(t *testing.T) {
	// The model proposes its own audit date; it must be discarded.
	client := &mockClient{response: `{
		"intent": "add_task",
		"sheet": "タスク管理",
		"body": {"内容": "資料作成", "担当": "山田", "期限": "12/05", "追加日": "1999-01-01"}
	}`}

	ext := New(client, fixedClock(t))
	cmd, err := ext.Extract(context.Background(), "資料作成")

	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", cmd.Body[command.FieldAddedDate])
}

func TestExtractor_Extract_EnvelopeDefaults(t *testing.T) {
	client := &mockClient{response: `{
		"intent": "",
		"sheet": "",
		"body": {"内容": "資料作成", "担当": "", "期限": "", "追加日": ""}
	}`}

	ext := New(client, fixedClock(t))
	cmd, err := ext.Extract(context.Background(), "資料作成をお願い")

	require.NoError(t, err)
	assert.Equal(t, command.DefaultIntent, cmd.Intent)
	assert.Equal(t, command.DefaultSheet, cmd.Sheet)
	// Body fields have no safe defaults and stay as extracted.
	assert.Equal(t, "", cmd.Body[command.FieldAssignee])
}

func TestExtractor_Extract_CapabilityError(t *testing.T) {
	client := &mockClient{err: llm.ErrModelUnavailable}

	ext := New(client, fixedClock(t))
	_, err := ext.Extract(context.Background(), "資料作成")

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrCodeCapability, extErr.Code)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}

func TestExtractor_Extract_MalformedOutput(t *testing.T) {
	client := &mockClient{response: "I cannot help with that."}

	ext := New(client, fixedClock(t))
	_, err := ext.Extract(context.Background(), "資料作成")

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrCodeInvalidOutput, extErr.Code)
}

func TestExtractor_Extract_OmittedBodyKeyRoutesToClarification(t *testing.T) {
	// A reply missing 担当 entirely decodes as an empty field rather than a
	// parse failure, leaving the gap to the clarification flow.
	client := &mockClient{response: `{
		"intent": "add_task",
		"sheet": "タスク管理",
		"body": {"内容": "資料作成", "期限": "12/05"}
	}`}

	ext := New(client, fixedClock(t))
	cmd, err := ext.Extract(context.Background(), "12/05までに資料作成")

	require.NoError(t, err)
	assert.Equal(t, "", cmd.Body[command.FieldAssignee])
	assert.Equal(t, "12/05", cmd.Body[command.FieldDueDate])
}

func TestExtractor_Extract_EndpointInvalidOutputKeepsCode(t *testing.T) {
	// Undecodable endpoint bodies surface from the client pre-wrapped; the
	// code must stay INVALID_OUTPUT, not degrade to a capability error.
	client := &mockClient{err: llm.ErrInvalidOutput}

	ext := New(client, fixedClock(t))
	_, err := ext.Extract(context.Background(), "資料作成")

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrCodeInvalidOutput, extErr.Code)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)
}

func TestExtractor_Extract_NoAPIKeyPreservedInChain(t *testing.T) {
	client := &mockClient{err: llm.ErrNoAPIKey}

	ext := New(client, fixedClock(t))
	_, err := ext.Extract(context.Background(), "資料作成")

	// The HTTP layer distinguishes misconfiguration from upstream failure.
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
}
