package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
)

// fakeExtractor returns canned text blocks.
type fakeExtractor struct {
	blocks []string
	err    error
}

func (f *fakeExtractor) ExtractText(r io.Reader) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks, nil
}

// fakeAI produces deterministic 4-dim vectors and canned completions while
// counting calls.
type fakeAI struct {
	embedErr      error
	completeErr   error
	extractErr    error
	completion    string
	extracted     string
	embedCalls    int
	completeCalls int
	extractCalls  int
	lastPrompt    string
	lastExtracted string
}

func (f *fakeAI) ModelName() string { return "fake-model" }
func (f *fakeAI) Dimension() int    { return 4 }

func (f *fakeAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), float32(i), 0, 1}
	}
	return vectors, nil
}

func (f *fakeAI) Complete(ctx context.Context, prompt string) (string, error) {
	f.completeCalls++
	f.lastPrompt = prompt
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if f.completion != "" {
		return f.completion, nil
	}
	return "generated letter", nil
}

func (f *fakeAI) ExtractFromURL(ctx context.Context, jobURL string) (string, error) {
	f.extractCalls++
	if f.extractErr != nil {
		return "", f.extractErr
	}
	f.lastExtracted = jobURL
	if f.extracted != "" {
		return f.extracted, nil
	}
	return "extracted requirements for " + jobURL, nil
}

// fakeIndex is an in-memory tag-partitioned vector index with per-operation
// failure injection.
type fakeIndex struct {
	mu     sync.Mutex
	points map[string]map[string]domain.IndexPoint // tag -> point id -> point

	upsertErr error
	searchErr error
	deleteErr error
	scrollErr error

	deleteCalls int
	// drops the last n points of every upsert, to simulate a partial write
	dropOnUpsert int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string]map[string]domain.IndexPoint{}}
}

func (f *fakeIndex) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	keep := len(points) - f.dropOnUpsert
	for i, p := range points {
		if i >= keep {
			break
		}
		tag := p.Payload.SourceID
		if f.points[tag] == nil {
			f.points[tag] = map[string]domain.IndexPoint{}
		}
		f.points[tag][p.ID] = p
	}
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, queryVector []float32, topK int, sourceTag string) (*domain.RAGResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	result := &domain.RAGResult{}
	for _, p := range f.sortedLocked(sourceTag) {
		if len(result.Contexts) >= topK {
			break
		}
		result.Contexts = append(result.Contexts, p.Payload.Text)
		result.Sources = append(result.Sources, p.Payload)
	}
	return result, nil
}

func (f *fakeIndex) DeleteByTag(ctx context.Context, sourceTag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.points, sourceTag)
	return nil
}

func (f *fakeIndex) ScrollByTag(ctx context.Context, sourceTag string) ([]domain.IndexPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrollErr != nil {
		return nil, f.scrollErr
	}
	return f.sortedLocked(sourceTag), nil
}

func (f *fakeIndex) sortedLocked(sourceTag string) []domain.IndexPoint {
	var out []domain.IndexPoint
	for _, p := range f.points[sourceTag] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Payload.ChunkIndex < out[j].Payload.ChunkIndex })
	return out
}

// fakeStore keeps CVs and letters in memory, keyed like the real store.
type fakeStore struct {
	mu      sync.Mutex
	cvs     map[string]*domain.CV // source_id -> cv
	letters []*domain.Letter
	nextID  int

	upsertCVErr     error
	createLetterErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cvs: map[string]*domain.CV{}}
}

func (f *fakeStore) UpsertCV(ctx context.Context, cv *domain.CV) (*domain.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertCVErr != nil {
		return nil, f.upsertCVErr
	}

	if existing, ok := f.cvs[cv.SourceID]; ok {
		if existing.UserID != cv.UserID {
			return nil, port.ErrCVNotFound
		}
		cv.ID = existing.ID
	} else {
		f.nextID++
		cv.ID = fmt.Sprintf("cv-%d", f.nextID)
	}
	stored := *cv
	f.cvs[cv.SourceID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetCVByID(ctx context.Context, userID, cvID string) (*domain.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cv := range f.cvs {
		if cv.ID == cvID && cv.UserID == userID {
			return cv, nil
		}
	}
	return nil, port.ErrCVNotFound
}

func (f *fakeStore) GetCVBySourceID(ctx context.Context, sourceID string) (*domain.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cv, ok := f.cvs[sourceID]; ok {
		return cv, nil
	}
	return nil, port.ErrCVNotFound
}

func (f *fakeStore) ListCVsByUser(ctx context.Context, userID string) ([]domain.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CV
	for _, cv := range f.cvs {
		if cv.UserID == userID {
			out = append(out, *cv)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCVOptionsByUser(ctx context.Context, userID string) ([]domain.CVOption, error) {
	cvs, _ := f.ListCVsByUser(ctx, userID)
	options := make([]domain.CVOption, len(cvs))
	for i, cv := range cvs {
		options[i] = domain.CVOption{ID: cv.ID, SourceID: cv.SourceID, Label: cv.OriginalFilename}
	}
	return options, nil
}

func (f *fakeStore) DeleteCV(ctx context.Context, userID, cvID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tag, cv := range f.cvs {
		if cv.ID == cvID && cv.UserID == userID {
			delete(f.cvs, tag)
			return nil
		}
	}
	return port.ErrCVNotFound
}

func (f *fakeStore) CreateLetter(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createLetterErr != nil {
		return nil, f.createLetterErr
	}
	f.nextID++
	stored := *l
	stored.ID = fmt.Sprintf("letter-%d", f.nextID)
	f.letters = append(f.letters, &stored)
	return &stored, nil
}

func (f *fakeStore) ListLettersByUser(ctx context.Context, userID string) ([]domain.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Letter
	for _, l := range f.letters {
		if cv, ok := f.cvs[l.SourceID]; ok && cv.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

// resumeReader is a stand-in for an uploaded file body.
func resumeReader() io.Reader {
	return strings.NewReader("%PDF-1.4 fake body")
}
