package catalog

// defaultCatalogYAML is used when no catalog_path is configured.
const defaultCatalogYAML = `
models:
  - id: "llama3.1:8b"
    provider: ollama
    tier: fast
    local: true
  - id: gpt-4o-mini
    provider: openai
    tier: balanced
  - id: claude-sonnet-4
    provider: anthropic
    tier: balanced
  - id: claude-opus-4
    provider: anthropic
    tier: quality

routes:
  research: {fast: "llama3.1:8b", balanced: gpt-4o-mini, quality: claude-sonnet-4}
  outline:  {fast: "llama3.1:8b", balanced: gpt-4o-mini, quality: claude-sonnet-4}
  draft:    {fast: "llama3.1:8b", balanced: claude-sonnet-4, quality: claude-opus-4}
  assess:   {fast: "llama3.1:8b", balanced: gpt-4o-mini, quality: claude-sonnet-4}
  refine:   {fast: "llama3.1:8b", balanced: claude-sonnet-4, quality: claude-opus-4}
  finalize: {fast: "llama3.1:8b", balanced: claude-sonnet-4, quality: claude-opus-4}

prices:
  research: {"llama3.1:8b": "0", gpt-4o-mini: "0.002", claude-sonnet-4: "0.015", claude-opus-4: "0.075"}
  outline:  {"llama3.1:8b": "0", gpt-4o-mini: "0.001", claude-sonnet-4: "0.008", claude-opus-4: "0.040"}
  draft:    {"llama3.1:8b": "0", gpt-4o-mini: "0.004", claude-sonnet-4: "0.045", claude-opus-4: "0.225"}
  assess:   {"llama3.1:8b": "0", gpt-4o-mini: "0.001", claude-sonnet-4: "0.010", claude-opus-4: "0.050"}
  refine:   {"llama3.1:8b": "0", gpt-4o-mini: "0.003", claude-sonnet-4: "0.030", claude-opus-4: "0.150"}
  finalize: {"llama3.1:8b": "0", gpt-4o-mini: "0.002", claude-sonnet-4: "0.020", claude-opus-4: "0.100"}
`

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse([]byte(defaultCatalogYAML))
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
