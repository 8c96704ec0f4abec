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

package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding indicates the embedding service failed. Terminal for the
	// operation that needed the vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the generation service failed. Terminal for
	// the pipeline invocation.
	ErrGeneration = errors.New("generation failed")

	// ErrSchemaViolation indicates structured output did not conform to the
	// requested schema. It is never retried internally.
	ErrSchemaViolation = errors.New("schema violation")
)

// EmbeddingError marks err as an embedding failure unless it already is one.
func EmbeddingError(err error) error {
	return mark(ErrEmbedding, err)
}

// GenerationError marks err as a generation failure unless it already is one.
func GenerationError(err error) error {
	return mark(ErrGeneration, err)
}

func mark(kind, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
