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

// Package storage provides the storage abstraction layer for ragpipe.
//
// ChunkRepository is the persistence contract behind the similarity index:
// append-only writes with sequence-assigned IDs, lookups by ID and content,
// and brute-force k-nearest-neighbour search with an optional metadata
// equality filter.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the interface:
//
//	repo, backend, err := badger.NewMemoryRepository("documents")  // storage.ChunkRepository
//
// Internal constructors may return concrete types.
//
// # Encoding
//
// Records are encoded with mus-go primitive serializers (MarshalChunk,
// UnmarshalChunk). Metadata keys are written in sorted order so equal chunks
// always encode to equal bytes.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. All methods accept
// context.Context for cancellation.
package storage
