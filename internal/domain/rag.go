package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// ChunkPayload is the payload stored alongside each vector in the index.
// Field names are a schema convention shared with pre-existing collections;
// do not rename them.
type ChunkPayload struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// IndexPoint is the persisted unit in the vector index: id + vector + payload.
type IndexPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// RAGResult aggregates a similarity search: Contexts[i] is the chunk text
// belonging to Sources[i].
type RAGResult struct {
	Contexts []string       `json:"contexts"`
	Sources  []ChunkPayload `json:"sources"`
}

// Empty reports whether the search returned no usable contexts.
func (r *RAGResult) Empty() bool {
	return r == nil || len(r.Contexts) == 0
}

// pointNamespace salts the UUIDv5 derivation of point IDs.
var pointNamespace = uuid.MustParse("8f2f1d9e-6a54-4c81-9b12-7c3de2a40f6b")

// PointID derives a deterministic, collision-free point ID from the source
// tag and chunk index. Re-ingesting the same document overwrites its points
// positionally instead of duplicating them.
func PointID(sourceTag string, chunkIndex int) string {
	name := sourceTag + ":" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}
