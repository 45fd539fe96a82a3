// Package extract turns free-text task instructions into structured sheet
// commands using the model capability plus a fixed prompt contract.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/hashi/internal/command"
	"github.com/alexanderramin/hashi/internal/llm"
)

// ErrorCode enumerates extraction failure reasons.
type ErrorCode string

const (
	// ErrCodeCapability covers model endpoint failures: unreachable,
	// timed out, misconfigured credential.
	ErrCodeCapability ErrorCode = "CAPABILITY_ERROR"

	// ErrCodeInvalidOutput covers content that does not parse as the
	// declared schema.
	ErrCodeInvalidOutput ErrorCode = "INVALID_OUTPUT"
)

// ExtractionError is returned when text-to-command extraction fails.
// It is always surfaced to the caller, never silently defaulted.
type ExtractionError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Extractor converts free-form instruction text into a candidate Command.
type Extractor interface {
	Extract(ctx context.Context, text string) (command.Command, error)
}

type extractor struct {
	client llm.Client
	now    func() time.Time
}

// New creates an Extractor backed by a model client. now supplies the
// server-stamped audit date; nil means time.Now.
func New(client llm.Client, now func() time.Time) Extractor {
	if now == nil {
		now = time.Now
	}
	return &extractor{client: client, now: now}
}

// rawCommand mirrors the response schema with named body fields instead of a
// loose map. Decoding is deliberately lenient: a field the model omitted
// decodes as empty and is handled by clarification, not treated as a parse
// failure. The strict schema sent with the request keeps omissions rare.
type rawCommand struct {
	Intent string  `json:"intent"`
	Sheet  string  `json:"sheet"`
	Body   rawBody `json:"body"`
}

type rawBody struct {
	Content   string `json:"内容"`
	Assignee  string `json:"担当"`
	DueDate   string `json:"期限"`
	AddedDate string `json:"追加日"`
}

func (e *extractor) Extract(ctx context.Context, text string) (command.Command, error) {
	resp, err := e.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskExtract,
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   text,
		Schema: &llm.ResponseSchema{
			Name:   "SheetCommand",
			Schema: json.RawMessage(commandSchemaJSON),
		},
	})
	if err != nil {
		// Malformed endpoint output is a content problem, not a capability
		// problem, even when it surfaces from the transport layer.
		code := ErrCodeCapability
		if errors.Is(err, llm.ErrInvalidOutput) {
			code = ErrCodeInvalidOutput
		}
		return command.Command{}, &ExtractionError{
			Code:    code,
			Message: fmt.Sprintf("model extraction failed: %v", err),
			Cause:   err,
		}
	}

	raw, err := llm.ExtractJSON[rawCommand](resp.Text, nil)
	if err != nil {
		return command.Command{}, &ExtractionError{
			Code:    ErrCodeInvalidOutput,
			Message: fmt.Sprintf("model output did not match command schema: %v", err),
			Cause:   err,
		}
	}

	cmd := command.Command{
		Intent: raw.Intent,
		Sheet:  raw.Sheet,
		Body: map[string]string{
			command.FieldContent:  raw.Body.Content,
			command.FieldAssignee: raw.Body.Assignee,
			command.FieldDueDate:  raw.Body.DueDate,
		},
	}

	// Safe fallbacks for the envelope only. Body fields stay as extracted.
	if cmd.Intent == "" {
		cmd.Intent = command.DefaultIntent
	}
	if cmd.Sheet == "" {
		cmd.Sheet = command.DefaultSheet
	}

	// The audit date is always server-stamped. Model output for it is
	// discarded even when present, so the trail stays trustworthy.
	cmd.Body[command.FieldAddedDate] = e.now().Format("2006-01-02")

	return cmd, nil
}
