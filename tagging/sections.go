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

package tagging

import (
	"github.com/poiesic/ragpipe/core"
)

// SectionFor returns the positional label of chunk i out of n.
// With t = n/3 (integer division) indices [0, t) are the beginning,
// [t, 2t) the middle and [2t, n) the end, so the end absorbs the remainder.
func SectionFor(i, n int) core.Section {
	third := n / 3
	switch {
	case i < third:
		return core.SectionBeginning
	case i < 2*third:
		return core.SectionMiddle
	default:
		return core.SectionEnd
	}
}

// SectionCounts returns how many of n chunks receive each label.
func SectionCounts(n int) (beginning, middle, end int) {
	third := n / 3
	return third, third, n - 2*third
}

// TagSections labels every chunk with its section. The input is not
// modified; tagged copies are returned in the same order.
func TagSections(chunks []core.Chunk) []core.Chunk {
	out := make([]core.Chunk, len(chunks))
	for i, chunk := range chunks {
		tagged := chunk.Clone()
		if tagged.Metadata == nil {
			tagged.Metadata = make(map[string]string, 1)
		}
		tagged.Metadata[core.MetaSection] = string(SectionFor(i, len(chunks)))
		out[i] = tagged
	}
	return out
}
