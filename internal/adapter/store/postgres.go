package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/lib/pq"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Users ---

// CreateUser inserts a new user. Returns port.ErrUserExists when the email is taken.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (email, password_hash, first_name, last_name)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, email, password_hash, first_name, last_name, is_active, is_verified, created_at, updated_at`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.FirstName, u.LastName).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.IsActive, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, port.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, password_hash, first_name, last_name, is_active, is_verified, created_at, updated_at
	          FROM users WHERE email = $1`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.IsActive, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, email, password_hash, first_name, last_name, is_active, is_verified, created_at, updated_at
	          FROM users WHERE id = $1`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.IsActive, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// --- CVs ---

// UpsertCV inserts a CV metadata record, or updates it when the same user
// re-uploads under an existing source tag. A tag owned by another user is
// rejected via port.ErrCVNotFound (the guarded update matches no row). The
// unique index on source_id is what resolves concurrent same-tag ingestions.
func (s *PostgresStore) UpsertCV(ctx context.Context, cv *domain.CV) (*domain.CV, error) {
	query := `INSERT INTO cvs (user_id, source_id, filename, original_filename, file_size, content_type, chunk_count, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (source_id) DO UPDATE SET
	              filename = EXCLUDED.filename,
	              original_filename = EXCLUDED.original_filename,
	              file_size = EXCLUDED.file_size,
	              content_type = EXCLUDED.content_type,
	              chunk_count = EXCLUDED.chunk_count,
	              status = EXCLUDED.status,
	              updated_at = NOW()
	          WHERE cvs.user_id = EXCLUDED.user_id
	          RETURNING id, user_id, source_id, filename, original_filename, file_size, content_type, chunk_count, status, created_at, updated_at`

	var result domain.CV
	err := s.db.QueryRowContext(ctx, query,
		cv.UserID, cv.SourceID, cv.Filename, cv.OriginalFilename,
		cv.FileSize, cv.ContentType, cv.ChunkCount, cv.Status,
	).Scan(
		&result.ID, &result.UserID, &result.SourceID, &result.Filename, &result.OriginalFilename,
		&result.FileSize, &result.ContentType, &result.ChunkCount, &result.Status,
		&result.CreatedAt, &result.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrCVNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("upsert cv: %w", err)
	}
	return &result, nil
}

// GetCVByID returns a CV owned by the given user.
func (s *PostgresStore) GetCVByID(ctx context.Context, userID, cvID string) (*domain.CV, error) {
	query := `SELECT id, user_id, source_id, filename, original_filename, file_size, content_type, chunk_count, status, created_at, updated_at
	          FROM cvs WHERE id = $1 AND user_id = $2`

	var cv domain.CV
	err := s.db.QueryRowContext(ctx, query, cvID, userID).Scan(
		&cv.ID, &cv.UserID, &cv.SourceID, &cv.Filename, &cv.OriginalFilename,
		&cv.FileSize, &cv.ContentType, &cv.ChunkCount, &cv.Status,
		&cv.CreatedAt, &cv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrCVNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cv: %w", err)
	}
	return &cv, nil
}

// GetCVBySourceID returns the CV carrying the given source tag.
func (s *PostgresStore) GetCVBySourceID(ctx context.Context, sourceID string) (*domain.CV, error) {
	query := `SELECT id, user_id, source_id, filename, original_filename, file_size, content_type, chunk_count, status, created_at, updated_at
	          FROM cvs WHERE source_id = $1`

	var cv domain.CV
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&cv.ID, &cv.UserID, &cv.SourceID, &cv.Filename, &cv.OriginalFilename,
		&cv.FileSize, &cv.ContentType, &cv.ChunkCount, &cv.Status,
		&cv.CreatedAt, &cv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrCVNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cv by source: %w", err)
	}
	return &cv, nil
}

// ListCVsByUser returns all CVs for a user, newest first.
func (s *PostgresStore) ListCVsByUser(ctx context.Context, userID string) ([]domain.CV, error) {
	query := `SELECT id, user_id, source_id, filename, original_filename, file_size, content_type, chunk_count, status, created_at, updated_at
	          FROM cvs WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}
	defer rows.Close()

	var cvs []domain.CV
	for rows.Next() {
		var cv domain.CV
		if err := rows.Scan(
			&cv.ID, &cv.UserID, &cv.SourceID, &cv.Filename, &cv.OriginalFilename,
			&cv.FileSize, &cv.ContentType, &cv.ChunkCount, &cv.Status,
			&cv.CreatedAt, &cv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cv: %w", err)
		}
		cvs = append(cvs, cv)
	}
	return cvs, rows.Err()
}

// ListCVOptionsByUser returns the short form used for selection dropdowns.
func (s *PostgresStore) ListCVOptionsByUser(ctx context.Context, userID string) ([]domain.CVOption, error) {
	query := `SELECT id, source_id, original_filename FROM cvs
	          WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cv options: %w", err)
	}
	defer rows.Close()

	var options []domain.CVOption
	for rows.Next() {
		var o domain.CVOption
		if err := rows.Scan(&o.ID, &o.SourceID, &o.Label); err != nil {
			return nil, fmt.Errorf("scan cv option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// DeleteCV removes a CV row owned by the user. Letters cascade via FK.
func (s *PostgresStore) DeleteCV(ctx context.Context, userID, cvID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cvs WHERE id = $1 AND user_id = $2`, cvID, userID)
	if err != nil {
		return fmt.Errorf("delete cv: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrCVNotFound
	}
	return nil
}

// --- Letters ---

// CreateLetter persists a generated letter.
func (s *PostgresStore) CreateLetter(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	query := `INSERT INTO letters (cv_id, source_id, job_title, job_description, job_url, requirements, content, model_used, generation_ms, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id, cv_id, source_id, job_title, job_description, job_url, requirements, content, model_used, generation_ms, status, created_at`

	var result domain.Letter
	err := s.db.QueryRowContext(ctx, query,
		l.CVID, l.SourceID, l.JobTitle, l.JobDescription, l.JobURL,
		l.Requirements, l.Content, l.ModelUsed, l.GenerationMS, l.Status,
	).Scan(
		&result.ID, &result.CVID, &result.SourceID, &result.JobTitle, &result.JobDescription,
		&result.JobURL, &result.Requirements, &result.Content, &result.ModelUsed,
		&result.GenerationMS, &result.Status, &result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create letter: %w", err)
	}
	return &result, nil
}

// ListLettersByUser returns all letters generated from the user's CVs, newest first.
func (s *PostgresStore) ListLettersByUser(ctx context.Context, userID string) ([]domain.Letter, error) {
	query := `SELECT l.id, l.cv_id, l.source_id, l.job_title, l.job_description, l.job_url,
	                 l.requirements, l.content, l.model_used, l.generation_ms, l.status, l.created_at
	          FROM letters l
	          JOIN cvs c ON c.id = l.cv_id
	          WHERE c.user_id = $1
	          ORDER BY l.created_at DESC
	          LIMIT 200`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	defer rows.Close()

	var letters []domain.Letter
	for rows.Next() {
		var l domain.Letter
		if err := rows.Scan(
			&l.ID, &l.CVID, &l.SourceID, &l.JobTitle, &l.JobDescription, &l.JobURL,
			&l.Requirements, &l.Content, &l.ModelUsed, &l.GenerationMS, &l.Status, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan letter: %w", err)
		}
		letters = append(letters, l)
	}
	return letters, rows.Err()
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(context.Background(), query,
		userID, action, resource, resourceID, details, ip, userAgent,
	)
	return err
}

// ListAuditLogs returns recent audit logs, optionally filtered by action.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs`
	args := []any{}
	if action != "" {
		query += ` WHERE action = $1`
		args = append(args, action)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
