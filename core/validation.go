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

package core

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateChunk validates a Chunk before it is indexed.
//
// Validation rules:
//   - Content must not be empty or whitespace only
//
// NOT validated (populated by the index):
//   - Vector
//   - ID (0 is valid until the sequence assigns one)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	return nil
}

// ValidateFilter validates an optional metadata filter. A nil filter is valid.
func ValidateFilter(filter *Filter) error {
	if filter == nil {
		return nil
	}
	if filter.Field == "" {
		return fmt.Errorf("%w: field is empty", ErrInvalidFilter)
	}
	return nil
}

// ValidateSearchQuery checks a structured query against the allowed sections.
func ValidateSearchQuery(q SearchQuery, allowed []Section) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSearchQuery, ErrEmptyQuery)
	}
	if !slices.Contains(allowed, q.Section) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSearchQuery, ErrInvalidSection, q.Section)
	}
	return nil
}
