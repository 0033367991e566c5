package port

import (
	"context"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
)

// VectorIndex abstracts the similarity-search collection holding résumé chunks.
//
// All tag filtering happens query-side inside the index. Post-filtering an
// unfiltered top-k on the client truncates results incorrectly as soon as the
// collection holds more than one document.
type VectorIndex interface {
	// Upsert writes points, idempotent per point ID. The backing collection is
	// created lazily with the configured dimension and cosine metric.
	Upsert(ctx context.Context, points []domain.IndexPoint) error

	// Search returns up to topK nearest points whose payload source tag
	// matches sourceTag. Points without retrievable text are excluded.
	Search(ctx context.Context, queryVector []float32, topK int, sourceTag string) (*domain.RAGResult, error)

	// DeleteByTag removes every point belonging to the tag.
	DeleteByTag(ctx context.Context, sourceTag string) error

	// ScrollByTag retrieves all points for a tag (vectors and payload),
	// paginated internally, for verification and rollback.
	ScrollByTag(ctx context.Context, sourceTag string) ([]domain.IndexPoint, error)
}
