package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/openai"
)

const extractionFunctionName = "extract_project_entries"

const systemPrompt = `You are a precise information extraction assistant. Extract project entries from weekly reports and return them as valid JSON.

CRITICAL: Your response must be valid JSON only. No markdown, no explanations, no code blocks.

Return a JSON object with this exact structure:
{
  "rows": [
    {
      "project_name": "string (required)",
      "title": "string or null",
      "summary": "string (required, min 1 char)",
      "next_actions": "string or null",
      "owner": "string or null",
      "category": "Development|EPC|Finance|Investment or null",
      "source_text": "string or null"
    }
  ]
}

Rules:
- Only include projects actually mentioned in the document
- Keep summaries concise but informative
- Use exact category names: Development, EPC, Finance, Investment
- If unsure about category, use null
- Extract key information, don't hallucinate details`

type schemaProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// extractionFunction is the function-calling variant of the row schema
var extractionFunction = func() *openai.Function {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rows": map[string]any{
				"type":        "array",
				"description": "List of project entries found in the document",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]schemaProperty{
						"project_name": {Type: "string", Description: "Name of the project"},
						"title":        {Type: "string", Description: "Title or heading of the entry"},
						"summary":      {Type: "string", Description: "Summary of the project status"},
						"next_actions": {Type: "string", Description: "Planned next actions"},
						"owner":        {Type: "string", Description: "Person or team responsible"},
						"category":     {Type: "string", Description: "Project category", Enum: categories},
						"source_text":  {Type: "string", Description: "Original text from document"},
					},
					"required": []string{"project_name", "summary"},
				},
			},
		},
		"required": []string{"rows"},
	}
	raw, err := json.Marshal(params)
	if err != nil {
		panic(fmt.Sprintf("extract: marshal function schema: %v", err))
	}
	return &openai.Function{
		Name:        extractionFunctionName,
		Description: "Extract project entries from a weekly report document",
		Parameters:  raw,
	}
}()

// buildUserPrompt renders the per-section request. candidates, when given,
// are listed as the names the model should use.
func buildUserPrompt(text, cwLabel, category string, candidates []string) string {
	var b strings.Builder
	b.WriteString("Extract project entries from this weekly report document.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Calendar week: %s\n", cwLabel)
	fmt.Fprintf(&b, "- Default category (if unclear): %s\n", category)
	if len(candidates) > 0 {
		b.WriteString("- Known project names (use these exact spellings for project_name when they apply):\n")
		for _, c := range candidates {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	b.WriteString("\nDocument content:\n")
	b.WriteString(text)
	b.WriteString("\n\nReturn valid JSON only with the exact structure specified in the system prompt.")
	return b.String()
}

func buildMessages(text, cwLabel, category string, candidates []string) []openai.Message {
	return []openai.Message{
		{Role: openai.RoleSystem, Content: systemPrompt},
		{Role: openai.RoleUser, Content: buildUserPrompt(text, cwLabel, category, candidates)},
	}
}

// EstimateTokens approximates the token count at four characters per token
func EstimateTokens(s string) int {
	return len([]rune(s)) / 4
}

// SafeTruncate shortens text to roughly maxTokens, preferring to cut at a
// paragraph break, then a sentence end, then a space.
func SafeTruncate(text string, maxTokens int) string {
	budget := maxTokens * 4
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return text
	}

	cut := string(runes[:budget])
	floor := int(float64(budget) * 0.7)

	if i := strings.LastIndex(cut, "\n\n"); i >= 0 && len([]rune(cut[:i])) > floor {
		return cut[:i]
	}
	if i := strings.LastIndexAny(cut, ".!?"); i >= 0 && len([]rune(cut[:i])) > floor {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return cut[:i]
	}
	return cut
}
