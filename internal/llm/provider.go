package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for the generative-AI collaborator.
// Consumers call Generate with a Request and receive the model's output;
// they must treat the content as untrusted and parse it defensively.
type Provider interface {
	// Generate sends a prompt (and optional image) to the model and returns
	// its response. When the request carries a Schema the provider uses its
	// native structured-output mechanism and validates the result; without
	// one the Content is the raw text response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Messages is the conversation history. Grading and card generation are
	// single-turn, so this usually holds one user message.
	Messages []Message

	// Image is optional inline image data attached to the last user message
	// (a photographed page to generate cards from). Nil when absent.
	Image []byte

	// ImageMIME is the MIME type of Image. Defaults to "image/jpeg".
	ImageMIME string

	// Schema is the JSON Schema the response must conform to. When nil the
	// response Content is raw text as json.RawMessage.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (tool name for Anthropic, schema name for
	// OpenAI). Kebab-case, e.g. "grading-result".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the model to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output. When a Schema was provided this is
	// the validated JSON object; otherwise the raw text response.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// imageMIME returns the request's image MIME type with the default applied.
func (r Request) imageMIME() string {
	if r.ImageMIME != "" {
		return r.ImageMIME
	}
	return "image/jpeg"
}
