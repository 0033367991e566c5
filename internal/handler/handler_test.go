package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/service"
	"github.com/gofiber/fiber/v3"
)

// memBackend implements the store, AI and index collaborators in memory so
// the full HTTP surface can be exercised without external services.
type memBackend struct {
	mu      sync.Mutex
	users   map[string]*domain.User // email -> user
	cvs     map[string]*domain.CV   // source_id -> cv
	letters []*domain.Letter
	points  map[string][]domain.IndexPoint // tag -> points
	nextID  int
}

func newMemBackend() *memBackend {
	return &memBackend{
		users:  map[string]*domain.User{},
		cvs:    map[string]*domain.CV{},
		points: map[string][]domain.IndexPoint{},
	}
}

func (m *memBackend) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// -- service.UserStore --

func (m *memBackend) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return nil, port.ErrUserExists
	}
	stored := *u
	stored.ID = m.id("user")
	stored.IsActive = true
	m.users[u.Email] = &stored
	return &stored, nil
}

func (m *memBackend) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, port.ErrUserNotFound
}

func (m *memBackend) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, port.ErrUserNotFound
}

// -- service.CVStore / service.LetterStore --

func (m *memBackend) UpsertCV(ctx context.Context, cv *domain.CV) (*domain.CV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.cvs[cv.SourceID]; ok {
		if existing.UserID != cv.UserID {
			return nil, port.ErrCVNotFound
		}
		cv.ID = existing.ID
	} else {
		cv.ID = m.id("cv")
	}
	stored := *cv
	m.cvs[cv.SourceID] = &stored
	return &stored, nil
}

func (m *memBackend) GetCVByID(ctx context.Context, userID, cvID string) (*domain.CV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cv := range m.cvs {
		if cv.ID == cvID && cv.UserID == userID {
			return cv, nil
		}
	}
	return nil, port.ErrCVNotFound
}

func (m *memBackend) GetCVBySourceID(ctx context.Context, sourceID string) (*domain.CV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cv, ok := m.cvs[sourceID]; ok {
		return cv, nil
	}
	return nil, port.ErrCVNotFound
}

func (m *memBackend) ListCVsByUser(ctx context.Context, userID string) ([]domain.CV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CV
	for _, cv := range m.cvs {
		if cv.UserID == userID {
			out = append(out, *cv)
		}
	}
	return out, nil
}

func (m *memBackend) ListCVOptionsByUser(ctx context.Context, userID string) ([]domain.CVOption, error) {
	cvs, _ := m.ListCVsByUser(ctx, userID)
	options := make([]domain.CVOption, len(cvs))
	for i, cv := range cvs {
		options[i] = domain.CVOption{ID: cv.ID, SourceID: cv.SourceID, Label: cv.OriginalFilename}
	}
	return options, nil
}

func (m *memBackend) DeleteCV(ctx context.Context, userID, cvID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tag, cv := range m.cvs {
		if cv.ID == cvID && cv.UserID == userID {
			delete(m.cvs, tag)
			return nil
		}
	}
	return port.ErrCVNotFound
}

func (m *memBackend) CreateLetter(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *l
	stored.ID = m.id("letter")
	m.letters = append(m.letters, &stored)
	return &stored, nil
}

func (m *memBackend) ListLettersByUser(ctx context.Context, userID string) ([]domain.Letter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Letter
	for _, l := range m.letters {
		if cv, ok := m.cvs[l.SourceID]; ok && cv.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

// -- port.AIProvider --

func (m *memBackend) ModelName() string { return "mem-model" }
func (m *memBackend) Dimension() int    { return 4 }

func (m *memBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (m *memBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, float32(i), 0, 0}
	}
	return vectors, nil
}

func (m *memBackend) Complete(ctx context.Context, prompt string) (string, error) {
	return "Dear hiring manager, I would like to apply.", nil
}

func (m *memBackend) ExtractFromURL(ctx context.Context, jobURL string) (string, error) {
	return "Requirements from " + jobURL, nil
}

// -- port.VectorIndex --

func (m *memBackend) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.Payload.SourceID] = append(m.points[p.Payload.SourceID], p)
	}
	return nil
}

func (m *memBackend) Search(ctx context.Context, queryVector []float32, topK int, sourceTag string) (*domain.RAGResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := &domain.RAGResult{}
	for _, p := range m.points[sourceTag] {
		if len(result.Contexts) >= topK {
			break
		}
		result.Contexts = append(result.Contexts, p.Payload.Text)
		result.Sources = append(result.Sources, p.Payload)
	}
	return result, nil
}

func (m *memBackend) DeleteByTag(ctx context.Context, sourceTag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, sourceTag)
	return nil
}

func (m *memBackend) ScrollByTag(ctx context.Context, sourceTag string) ([]domain.IndexPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[sourceTag], nil
}

// memExtractor sidesteps real PDF parsing for handler tests.
type memExtractor struct{}

func (memExtractor) ExtractText(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *memBackend) {
	t.Helper()
	backend := newMemBackend()

	jwtCfg := middleware.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}

	authService := service.NewAuthService(backend, jwtCfg)
	cvService := service.NewCVService(backend, memExtractor{}, backend, backend, service.NewChunker(1000, 0))
	letterService := service.NewLetterService(backend, backend, backend, 10)

	app := fiber.New()

	NewAuthHandler(authService).Register(app)

	api := app.Group("/api/v1", middleware.JWTMiddleware(jwtCfg))
	NewAuthHandler(authService).RegisterProtected(api)
	NewCVHandler(cvService).Register(api)
	NewLetterHandler(letterService).Register(api)

	return app, backend
}

func registerAndLogin(t *testing.T, app *fiber.App) string {
	t.Helper()
	body := `{"email":"dev@example.com","password":"s3cret-pass","first_name":"Ada"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var pair domain.TokenPair
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func uploadResume(t *testing.T, app *fiber.App, token, filename, sourceID, content string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if sourceID != "" {
		require.NoError(t, mw.WriteField("source_id", sourceID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/cv/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestAuthFlow(t *testing.T) {
	app, _ := newTestApp(t)
	token := registerAndLogin(t, app)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "dev@example.com", user.Email)
	assert.Empty(t, user.PasswordHash, "hash never leaves the API")
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	app, _ := newTestApp(t)

	body := `{"email":"dev@example.com","password":"short"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/api/v1/cv/", "/api/v1/letters/", "/api/v1/auth/me"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestUploadAndGenerateFlow(t *testing.T) {
	app, backend := newTestApp(t)
	token := registerAndLogin(t, app)

	status, body := uploadResume(t, app, token, "resume.pdf", "tag-a", "Five years of Go. Kafka pipelines.")
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var cv domain.CV
	require.NoError(t, json.Unmarshal(body, &cv))
	assert.Equal(t, "tag-a", cv.SourceID)
	assert.Equal(t, domain.CVStatusProcessed, cv.Status)
	assert.NotEmpty(t, backend.points["tag-a"])

	payload := `{"job_title":"Backend Engineer","job_description":"Go and Kafka.","source_id":"tag-a"}`
	req := httptest.NewRequest("POST", "/api/v1/letters/text", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var letter domain.Letter
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&letter))
	assert.Equal(t, "Dear hiring manager, I would like to apply.", letter.Content)
	assert.Equal(t, cv.ID, letter.CVID)
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	app, _ := newTestApp(t)
	token := registerAndLogin(t, app)

	status, body := uploadResume(t, app, token, "resume.docx", "", "text")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "validation_failed")
}

func TestGenerateUnknownTagIs404(t *testing.T) {
	app, _ := newTestApp(t)
	token := registerAndLogin(t, app)

	body := `{"job_title":"T","job_description":"D","source_id":"missing"}`
	req := httptest.NewRequest("POST", "/api/v1/letters/text", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGenerateAgainstAnotherUsersCV(t *testing.T) {
	app, backend := newTestApp(t)
	ownerToken := registerAndLogin(t, app)

	status, _ := uploadResume(t, app, ownerToken, "resume.pdf", "tag-a", "Five years of Go development.")
	require.Equal(t, fiber.StatusCreated, status)

	regBody := `{"email":"other@example.com","password":"s3cret-pass"}`
	regReq := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader([]byte(regBody)))
	regReq.Header.Set("Content-Type", "application/json")
	regResp, err := app.Test(regReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, regResp.StatusCode)

	var pair domain.TokenPair
	require.NoError(t, json.NewDecoder(regResp.Body).Decode(&pair))

	payload := `{"job_title":"T","job_description":"D","source_id":"tag-a"}`
	req := httptest.NewRequest("POST", "/api/v1/letters/text", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "someone else's tag reads as missing")
	assert.Empty(t, backend.letters, "nothing recorded against the owner's CV")

	listReq := httptest.NewRequest("GET", "/api/v1/letters/", nil)
	listReq.Header.Set("Authorization", "Bearer "+ownerToken)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listBody struct {
		Letters []domain.Letter `json:"letters"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listBody))
	assert.Empty(t, listBody.Letters, "owner's letter list stays clean")
}

func TestGenerateMissingFieldsIs400(t *testing.T) {
	app, _ := newTestApp(t)
	token := registerAndLogin(t, app)

	body := `{"job_title":"","job_description":"D","source_id":"tag"}`
	req := httptest.NewRequest("POST", "/api/v1/letters/text", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGenerateFromURLValidatesScheme(t *testing.T) {
	app, _ := newTestApp(t)
	token := registerAndLogin(t, app)

	body := `{"job_url":"ftp://example.com/job","source_id":"tag"}`
	req := httptest.NewRequest("POST", "/api/v1/letters/url", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteCVEndpoint(t *testing.T) {
	app, backend := newTestApp(t)
	token := registerAndLogin(t, app)

	status, body := uploadResume(t, app, token, "resume.pdf", "tag-a", "Some resume text.")
	require.Equal(t, fiber.StatusCreated, status)

	var cv domain.CV
	require.NoError(t, json.Unmarshal(body, &cv))

	req := httptest.NewRequest("DELETE", "/api/v1/cv/"+cv.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, backend.points["tag-a"])
	assert.Empty(t, backend.cvs)
}

func TestClassifyMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{port.ErrValidation, fiber.StatusBadRequest, "validation_failed"},
		{port.ErrInvalidCredentials, fiber.StatusUnauthorized, "unauthorized"},
		{port.ErrTokenExpired, fiber.StatusUnauthorized, "unauthorized"},
		{port.ErrAccountDisabled, fiber.StatusForbidden, "account_disabled"},
		{port.ErrUserExists, fiber.StatusConflict, "user_exists"},
		{port.ErrCVNotFound, fiber.StatusNotFound, "not_found"},
		{port.ErrNoResumeData, fiber.StatusNotFound, "not_found"},
		{port.ErrEmptyDocument, fiber.StatusUnprocessableEntity, "empty_document"},
		{port.ErrEmbedding, fiber.StatusBadGateway, "upstream_failed"},
		{port.ErrIndexUnavailable, fiber.StatusBadGateway, "upstream_failed"},
		{port.ErrGeneration, fiber.StatusBadGateway, "upstream_failed"},
		{errors.New("anything else"), fiber.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, code := classify(fmt.Errorf("wrapped: %w", tt.err))
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
