// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder, MockGenerator and MockProvider let tests run without a model
// server and with deterministic behavior.
//
//	gen := mock.NewMockGenerator("The sky is blue.")
//	gen.GenerateJSONFunc = func(ctx context.Context, prompt string) (string, error) {
//	    return `{"query": "sky color", "section": "beginning"}`, nil
//	}
//	prompts := gen.Prompts()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors based on a text hash
//   - MockGenerator: returns Response / JSONResponse and records prompts
//   - MockProvider: aggregates a mock embedder and generator
package mock
