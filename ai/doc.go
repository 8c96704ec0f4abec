// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai provides abstractions for the model services used by ragpipe.
//
// The pipeline treats the embedding model and the language model as external
// collaborators. Only their contracts matter here:
//
//   - Embedder: maps text to a fixed-dimension vector
//   - Generator: maps a prompt to text, either free-form or a JSON object
//   - AIProvider: aggregates both for initialization and shutdown
//
// # Errors
//
// Failures are classified with three sentinels that callers match with
// errors.Is: ErrEmbedding, ErrGeneration and ErrSchemaViolation. All three are
// terminal for a pipeline invocation. Nothing in this module retries them.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible services through langchaingo
//   - ai/mock: test doubles with injectable behavior
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What is task decomposition?")
//	answer, err := provider.Generator().Generate(ctx, prompt)
package ai
