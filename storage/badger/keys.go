package badger

import (
	"encoding/binary"

	"github.com/poiesic/ragpipe/core"
)

// Key prefixes for different data types
const (
	chunkPrefix        = "chunk"
	chunkContentPrefix = "chash"
	chunkIDSeqPrefix   = "chunkseq"
)

// makeCollectionPrefix returns the prefix shared by all chunk keys of a
// collection. Format: chunk:collection:
func makeCollectionPrefix(collection string) []byte {
	return []byte(chunkPrefix + ":" + collection + ":")
}

// makeChunkKey generates a key for a chunk by ID.
// Format: chunk:collection:id, with the ID in BigEndian order so that
// iteration visits chunks in insertion order.
func makeChunkKey(collection string, id core.ID) []byte {
	return appendID(makeCollectionPrefix(collection), id)
}

// makeContentKey generates a key for the content hash index.
// Format: chash:collection:contentID
func makeContentKey(collection string, contentID core.ID) []byte {
	return appendID([]byte(chunkContentPrefix+":"+collection+":"), contentID)
}

// makeSequenceName names the ID sequence of a collection.
func makeSequenceName(collection string) string {
	return chunkIDSeqPrefix + ":" + collection
}

func appendID(prefix []byte, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
