// Package generation holds the value types exchanged with text-generation backends.
package generation

import "slices"

// ModelType tags a generation backend variant.
type ModelType string

// Known backend variants. The registry holds exactly one entry per tag.
const (
	OpenAI   ModelType = "openai"
	DeepSeek ModelType = "deepseek"
	Local    ModelType = "local"
	Ollama   ModelType = "ollama"
)

var knownModelTypes = []ModelType{OpenAI, DeepSeek, Local, Ollama}

// KnownModelTypes returns every backend tag in registry order.
func KnownModelTypes() []ModelType { return slices.Clone(knownModelTypes) }

// IsKnown reports whether t names a backend variant.
func (t ModelType) IsKnown() bool { return slices.Contains(knownModelTypes, t) }

// Request is a single generation call.
type Request struct {
	Prompt       string
	SystemPrompt string
	Parameters   Parameters
}

// Info describes the backend that answered (or would answer) a request.
type Info struct {
	Name            string
	Type            ModelType
	IsLocal         bool
	Model           string
	APIBase         string
	AvailableModels []string
	Error           string
}

// Result is the generated text plus the describing backend info.
type Result struct {
	Text string
	Info Info
}
