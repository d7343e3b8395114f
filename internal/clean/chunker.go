package clean

import (
	"strings"

	"github.com/google/uuid"

	"github.com/thinkbridge/factsheet/internal/chunkstore"
)

// Chunker splits cleaned text into overlapping chunks sized in tokens.
// Words stand in for tokens at this granularity; the overlap keeps facts
// that straddle a boundary retrievable from both sides.
type Chunker struct {
	ChunkTokens   int
	OverlapTokens int
}

// NewChunker creates a chunker with the given sizing.
func NewChunker(chunkTokens, overlapTokens int) Chunker {
	return Chunker{ChunkTokens: chunkTokens, OverlapTokens: overlapTokens}
}

// Chunk splits text into chunks for a company page. Embeddings are left
// empty; the chunk store attaches them during indexing.
func (c Chunker) Chunk(companyID string, page chunkstore.SourcePage, text string) []chunkstore.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []chunkstore.Chunk
	start := 0
	for start < len(words) {
		end := start + c.ChunkTokens
		if end > len(words) {
			end = len(words)
		}
		piece := strings.Join(words[start:end], " ")
		chunks = append(chunks, chunkstore.Chunk{
			ID:         uuid.NewString(),
			CompanyID:  companyID,
			SourcePage: page,
			Text:       piece,
			TokenCount: end - start,
		})
		if end == len(words) {
			break
		}
		start = end - c.OverlapTokens
	}
	return chunks
}
