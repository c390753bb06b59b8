// Package extract turns free-form text, images, and voice recordings into
// structured tasks and memos by calling a generative model.
package extract

import "strings"

// Priority labels the model is asked to emit.
const (
	PriorityHigh   = "High"
	PriorityNormal = "Normal"
)

// Task is an actionable item extracted from input.
type Task struct {
	Category string  `json:"category"`
	Action   string  `json:"action"`
	Priority string  `json:"priority"`
	Deadline *string `json:"deadline"`
}

// Memo is a non-actionable note extracted from input.
type Memo struct {
	Content string `json:"content"`
}

// Result is one extraction outcome. Both fields are optional in the model's
// response and default to empty; no further validation is performed on
// field values.
type Result struct {
	Tasks []Task `json:"tasks"`
	Memos []Memo `json:"memos"`
}

// Empty reports whether the result carries no content.
func (r Result) Empty() bool {
	return len(r.Tasks) == 0 && len(r.Memos) == 0
}

// Media is a binary attachment with its declared MIME type.
type Media struct {
	MIME string
	Data []byte
}

// Input is one user submission. At least one field must be set for a model
// call to happen.
type Input struct {
	Text  string
	Image *Media
	Audio *Media
}

// Empty reports whether nothing was submitted.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Text) == "" && in.Image == nil && in.Audio == nil
}

// HasMedia reports whether the input carries an image or audio attachment.
func (in Input) HasMedia() bool {
	return in.Image != nil || in.Audio != nil
}

const summaryRunes = 15

// Summarize produces the short label recorded in session history.
func Summarize(in Input) string {
	if text := strings.TrimSpace(in.Text); text != "" {
		runes := []rune(text)
		if len(runes) > summaryRunes {
			return string(runes[:summaryRunes]) + "..."
		}
		return text
	}
	if in.Audio != nil {
		return "Audio"
	}
	if in.Image != nil {
		return "Image"
	}
	return "Input"
}
