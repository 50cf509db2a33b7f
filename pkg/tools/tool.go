package tools

// Tool is the interface for all tools. Input and output are strings,
// JSON-encoded where structured data is needed, so tools stay
// provider-agnostic.
type Tool interface {
	Name() string
	Description() string
	Run(input string) (string, error)
}
