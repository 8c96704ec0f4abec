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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSection indicates a section label outside the closed set.
	ErrInvalidSection = errors.New("invalid section")

	// ErrInvalidFilter indicates a metadata filter with no field.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidSearchQuery indicates a structured query failed validation.
	ErrInvalidSearchQuery = errors.New("invalid search query")

	// ErrEmptyQuery indicates the Query field is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// ErrFetch indicates that upstream content (a feed or a web page) could not
// be retrieved. Callers ingesting several sources log it and skip the source.
var ErrFetch = errors.New("fetch failed")
