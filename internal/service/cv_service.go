package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
)

// MaxUploadSize is the largest accepted résumé document.
const MaxUploadSize = 10 * 1024 * 1024 // 10MB

// CVStore is the relational collaborator for CV metadata records.
type CVStore interface {
	UpsertCV(ctx context.Context, cv *domain.CV) (*domain.CV, error)
	GetCVByID(ctx context.Context, userID, cvID string) (*domain.CV, error)
	GetCVBySourceID(ctx context.Context, sourceID string) (*domain.CV, error)
	ListCVsByUser(ctx context.Context, userID string) ([]domain.CV, error)
	ListCVOptionsByUser(ctx context.Context, userID string) ([]domain.CVOption, error)
	DeleteCV(ctx context.Context, userID, cvID string) error
}

// CVService runs the ingestion pipeline: extract → chunk → embed → upsert,
// and only then records CV metadata. Vector-store success gates the
// relational write; a failed second phase is repaired by deleting the tag's
// points so no metadata ever references missing vectors.
type CVService struct {
	store     CVStore
	extractor port.TextExtractor
	ai        port.AIProvider
	index     port.VectorIndex
	chunker   Chunker
}

// NewCVService creates a CV ingestion service.
func NewCVService(store CVStore, extractor port.TextExtractor, ai port.AIProvider, index port.VectorIndex, chunker Chunker) *CVService {
	return &CVService{
		store:     store,
		extractor: extractor,
		ai:        ai,
		index:     index,
		chunker:   chunker,
	}
}

// ValidateUpload rejects bad uploads before any pipeline work begins.
func ValidateUpload(filename string, size int64) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return fmt.Errorf("%w: only PDF files are allowed", port.ErrValidation)
	}
	if size <= 0 {
		return fmt.Errorf("%w: empty file", port.ErrValidation)
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%w: file size must be less than %d bytes", port.ErrValidation, MaxUploadSize)
	}
	return nil
}

// IngestCV indexes an uploaded résumé under the given source tag and records
// its metadata. Re-uploading the same tag replaces the previous content.
func (s *CVService) IngestCV(ctx context.Context, userID, sourceTag, filename string, document io.Reader, fileSize int64) (*domain.CV, error) {
	// A tag already claimed by another user must be rejected before the index
	// is touched, or their vectors would be cleared below.
	if existing, err := s.store.GetCVBySourceID(ctx, sourceTag); err == nil && existing.UserID != userID {
		return nil, port.ErrCVNotFound
	} else if err != nil && !errors.Is(err, port.ErrCVNotFound) {
		return nil, fmt.Errorf("check source tag: %w", err)
	}

	blocks, err := s.extractor.ExtractText(document)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	chunks := s.chunker.Chunk(blocks)
	if len(chunks) == 0 {
		return nil, port.ErrEmptyDocument
	}

	vectors, err := s.ai.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", port.ErrEmbedding, len(vectors), len(chunks))
	}

	points := make([]domain.IndexPoint, len(chunks))
	for i, chunk := range chunks {
		points[i] = domain.IndexPoint{
			ID:     domain.PointID(sourceTag, i),
			Vector: vectors[i],
			Payload: domain.ChunkPayload{
				Text:       chunk,
				Source:     filename,
				SourceID:   sourceTag,
				ChunkIndex: i,
			},
		}
	}

	// Clear any previous ingestion for this tag so a shorter re-upload never
	// leaves orphaned points behind the deterministic IDs.
	if err := s.index.DeleteByTag(ctx, sourceTag); err != nil {
		return nil, err
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return nil, err
	}

	// Detect partial writes before committing metadata.
	stored, err := s.index.ScrollByTag(ctx, sourceTag)
	if err != nil {
		return nil, err
	}
	if len(stored) != len(points) {
		s.repair(sourceTag)
		return nil, fmt.Errorf("%w: wrote %d of %d points", port.ErrIndexUnavailable, len(stored), len(points))
	}

	cv, err := s.store.UpsertCV(ctx, &domain.CV{
		UserID:           userID,
		SourceID:         sourceTag,
		Filename:         filename,
		OriginalFilename: filename,
		FileSize:         fileSize,
		ContentType:      "application/pdf",
		ChunkCount:       len(chunks),
		Status:           domain.CVStatusProcessed,
	})
	if err != nil {
		// Second phase failed: roll the vectors back so the index never holds
		// data without an owning record.
		s.repair(sourceTag)
		return nil, fmt.Errorf("record cv metadata: %w", err)
	}

	slog.Info("cv ingested", "cv_id", cv.ID, "source_id", sourceTag, "chunks", len(chunks))
	return cv, nil
}

// repair removes the tag's points after a failed second phase. Best effort:
// a failure here leaves the partial state detectable via ScrollByTag.
func (s *CVService) repair(sourceTag string) {
	if err := s.index.DeleteByTag(context.Background(), sourceTag); err != nil {
		slog.Error("ingestion repair failed", "source_id", sourceTag, "error", err)
	}
}

// ListCVs returns all CVs for a user.
func (s *CVService) ListCVs(ctx context.Context, userID string) ([]domain.CV, error) {
	return s.store.ListCVsByUser(ctx, userID)
}

// ListOptions returns the dropdown options for a user's CVs.
func (s *CVService) ListOptions(ctx context.Context, userID string) ([]domain.CVOption, error) {
	return s.store.ListCVOptionsByUser(ctx, userID)
}

// DeleteCV removes the CV's vectors first and the metadata record second,
// mirroring the ingestion ordering.
func (s *CVService) DeleteCV(ctx context.Context, userID, cvID string) error {
	cv, err := s.store.GetCVByID(ctx, userID, cvID)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByTag(ctx, cv.SourceID); err != nil {
		return err
	}

	if err := s.store.DeleteCV(ctx, userID, cvID); err != nil {
		return err
	}

	slog.Info("cv deleted", "cv_id", cvID, "source_id", cv.SourceID)
	return nil
}
