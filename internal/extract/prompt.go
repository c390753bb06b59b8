package extract

import (
	"fmt"
	"strings"
)

// DefaultCategories are the task categories the model is asked to choose from.
var DefaultCategories = []string{"Work", "Personal", "Health", "Shopping", "Other"}

// DefaultLanguage is the output language the model is asked to write in.
const DefaultLanguage = "Korean"

// GenericInstruction is the text part sent when the user supplied only
// image or audio content.
const GenericInstruction = "Analyze this content and extract tasks/memos."

const promptTemplate = `### Role
You are 'Just Draft', an AI agent that converts unstructured user input into structured JSON data.

### Goal
Analyze the input and extract 'Tasks' and 'Memos'. Return the result strictly in the defined JSON format.

### Processing Rules
1. Analysis: Identify actionable items (Tasks) and reference information (Memos/Ideas).
2. Refinement: Convert tasks into clear, action-oriented sentences. Remove filler words.
3. Categorization: Assign a category (%s).
4. Priority & Date: Detect urgency for priority ("%s"/"%s") and extract dates if present.
5. Language: Output content must be in %s.

### Output Schema (JSON Only)
{
  "tasks": [
    {
      "category": "String (%s)",
      "action": "String (Refined action item)",
      "priority": "String (%s/%s)",
      "deadline": "String (YYYY-MM-DD, Time, or text description / null if none)"
    }
  ],
  "memos": [
    {
      "content": "String (Non-actionable notes or ideas)"
    }
  ]
}`

// PromptSpec carries the overridable parts of the system prompt. Zero
// fields fall back to the defaults.
type PromptSpec struct {
	Categories     []string
	Language       string
	PriorityHigh   string
	PriorityNormal string
}

// BuildSystemPrompt renders the extraction system prompt.
func BuildSystemPrompt(spec PromptSpec) string {
	categories := spec.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	language := spec.Language
	if language == "" {
		language = DefaultLanguage
	}
	high := spec.PriorityHigh
	if high == "" {
		high = PriorityHigh
	}
	normal := spec.PriorityNormal
	if normal == "" {
		normal = PriorityNormal
	}

	commaSep := strings.Join(categories, ", ")
	slashSep := strings.Join(categories, "/")

	return fmt.Sprintf(promptTemplate,
		commaSep, high, normal, language,
		slashSep, high, normal)
}
