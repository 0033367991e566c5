package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
)

// skillsQuery is the fixed retrieval query embedded against the résumé index.
const skillsQuery = "key skills, experience, education, achievements"

// defaultTopK bounds how many résumé chunks feed the generation prompt.
const defaultTopK = 10

// LetterStore is the relational collaborator for persisting generated letters.
type LetterStore interface {
	CreateLetter(ctx context.Context, l *domain.Letter) (*domain.Letter, error)
	GetCVBySourceID(ctx context.Context, sourceID string) (*domain.CV, error)
	ListLettersByUser(ctx context.Context, userID string) ([]domain.Letter, error)
}

// LetterService runs the retrieval-and-generation pipeline: embed the skills
// query, search the index filtered to one source tag, and compose a cover
// letter from the retrieved résumé context.
//
// The tag filter is the load-bearing correctness property here: the index is
// shared across all users, and an unfiltered search could surface chunks from
// someone else's résumé.
type LetterService struct {
	ai    port.AIProvider
	index port.VectorIndex
	store LetterStore
	topK  int
}

// NewLetterService creates a letter generation service.
func NewLetterService(ai port.AIProvider, index port.VectorIndex, store LetterStore, topK int) *LetterService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &LetterService{ai: ai, index: index, store: store, topK: topK}
}

// GenerateFromText produces a cover letter for a job described by title and
// description, grounded in the résumé indexed under the caller's sourceTag.
// Returns port.ErrNoResumeData when nothing is indexed for the tag.
func (s *LetterService) GenerateFromText(ctx context.Context, userID, jobTitle, jobDescription, sourceTag string) (*domain.Letter, error) {
	cv, err := s.resolveCV(ctx, userID, sourceTag)
	if err != nil {
		return nil, err
	}

	requirements := jobTitle + "\n" + jobDescription

	content, elapsed, err := s.generate(ctx, requirements, sourceTag)
	if err != nil {
		return nil, err
	}

	letter := &domain.Letter{
		CVID:           cv.ID,
		SourceID:       sourceTag,
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
		Requirements:   requirements,
		Content:        content,
		ModelUsed:      s.ai.ModelName(),
		GenerationMS:   elapsed.Milliseconds(),
		Status:         domain.LetterStatusGenerated,
	}
	return s.persist(ctx, letter), nil
}

// GenerateFromURL extracts job requirements from a posting URL with a
// web-grounded model call, then delegates to the text pipeline. A failed or
// empty extraction returns without ever touching the generator.
func (s *LetterService) GenerateFromURL(ctx context.Context, userID, jobURL, sourceTag string) (*domain.Letter, error) {
	cv, err := s.resolveCV(ctx, userID, sourceTag)
	if err != nil {
		return nil, err
	}

	requirements, err := s.ai.ExtractFromURL(ctx, jobURL)
	if err != nil {
		return nil, err
	}

	content, elapsed, err := s.generate(ctx, requirements, sourceTag)
	if err != nil {
		return nil, err
	}

	letter := &domain.Letter{
		CVID:         cv.ID,
		SourceID:     sourceTag,
		JobURL:       jobURL,
		Requirements: requirements,
		Content:      content,
		ModelUsed:    s.ai.ModelName(),
		GenerationMS: elapsed.Milliseconds(),
		Status:       domain.LetterStatusGenerated,
	}
	return s.persist(ctx, letter), nil
}

// resolveCV loads the CV record behind a source tag and enforces ownership
// before any retrieval runs. The index is shared across all users, so a tag
// must never serve chunks to anyone but the user who ingested it.
func (s *LetterService) resolveCV(ctx context.Context, userID, sourceTag string) (*domain.CV, error) {
	cv, err := s.store.GetCVBySourceID(ctx, sourceTag)
	if errors.Is(err, port.ErrCVNotFound) {
		return nil, port.ErrNoResumeData
	}
	if err != nil {
		return nil, fmt.Errorf("resolve source tag: %w", err)
	}
	if cv.UserID != userID {
		return nil, port.ErrCVNotFound
	}
	return cv, nil
}

// ListLetters returns the user's generated letters.
func (s *LetterService) ListLetters(ctx context.Context, userID string) ([]domain.Letter, error) {
	return s.store.ListLettersByUser(ctx, userID)
}

// generate runs retrieval and one completion call, returning the letter text
// verbatim plus the time spent.
func (s *LetterService) generate(ctx context.Context, requirements, sourceTag string) (string, time.Duration, error) {
	start := time.Now()

	queryVector, err := s.ai.Embed(ctx, skillsQuery)
	if err != nil {
		return "", 0, err
	}

	result, err := s.index.Search(ctx, queryVector, s.topK, sourceTag)
	if err != nil {
		return "", 0, err
	}
	if result.Empty() {
		return "", 0, port.ErrNoResumeData
	}

	content, err := s.ai.Complete(ctx, buildLetterPrompt(requirements, result.Contexts))
	if err != nil {
		return "", 0, err
	}

	return content, time.Since(start), nil
}

// buildLetterPrompt assembles the generation prompt from the job requirements
// and the retrieved résumé context, one chunk per line.
func buildLetterPrompt(requirements string, contexts []string) string {
	var resumeBlock strings.Builder
	for _, c := range contexts {
		resumeBlock.WriteString("- ")
		resumeBlock.WriteString(c)
		resumeBlock.WriteString("\n")
	}

	return fmt.Sprintf(`You are an assistant that writes professional cover letters.

You have:
1. Job requirements: %s
2. Candidate resume data: %s

Task: write a personalized cover letter that:
- Highlights the relevant experience and skills from the resume
- Shows how the candidate matches the job requirements
- Demonstrates interest in the company and the position
- Keeps a professional but friendly tone
- Follows the standard structure: opening, body, closing
- Uses the resume data directly, with no blanks or placeholder markers

Write the letter in the same language the job requirements are written in.
Length: 250-400 words.`, requirements, resumeBlock.String())
}

// persist records the letter against its CV. Persistence is a downstream
// sink: a failure here is logged, not surfaced, and the generated letter is
// still returned to the caller.
func (s *LetterService) persist(ctx context.Context, letter *domain.Letter) *domain.Letter {
	saved, err := s.store.CreateLetter(ctx, letter)
	if err != nil {
		slog.Warn("letter persistence failed", "source_id", letter.SourceID, "error", err)
		return letter
	}
	return saved
}
