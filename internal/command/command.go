package command

import "strings"

// Body field names are fixed by the sheet layout on the sink side.
// The extraction prompt and the validation rules both pin this exact set.
const (
	FieldContent   = "内容"
	FieldAssignee  = "担当"
	FieldDueDate   = "期限"
	FieldAddedDate = "追加日"
)

// Defaults applied when the model omits the identity-bearing envelope fields.
// Body fields never default.
const (
	DefaultIntent = "add_task"
	DefaultSheet  = "タスク管理"

	IntentListTasks = "list_tasks"
)

// Command is the structured instruction produced from free text and
// ultimately sent to the sink. Immutable once dispatched.
type Command struct {
	Intent string            `json:"intent"`
	Sheet  string            `json:"sheet"`
	Body   map[string]string `json:"body"`
}

// RequiredField declares a body key that must be answered before dispatch,
// together with the clarification prompt used when it is missing.
type RequiredField struct {
	Name   string
	Prompt string
}

// RequiredFields lists the required body keys in declaration order. The
// clarification engine reports the first missing field in this order,
// regardless of input order.
var RequiredFields = []RequiredField{
	{Name: FieldAssignee, Prompt: "担当者を教えてください。"},
	{Name: FieldDueDate, Prompt: "期限を教えてください。"},
}

// PromptFor returns the clarification prompt for a required field name,
// or an empty string for unknown fields.
func PromptFor(field string) string {
	for _, f := range RequiredFields {
		if f.Name == field {
			return f.Prompt
		}
	}
	return ""
}

// Clone returns a deep copy of the command. Merging into pending state must
// never alias a body map that a caller still holds.
func (c Command) Clone() Command {
	body := make(map[string]string, len(c.Body))
	for k, v := range c.Body {
		body[k] = v
	}
	return Command{Intent: c.Intent, Sheet: c.Sheet, Body: body}
}

// Field returns the trimmed value of a body field.
func (c Command) Field(name string) string {
	return strings.TrimSpace(c.Body[name])
}
