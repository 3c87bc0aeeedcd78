package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"beneficiary/internal/profile/models"
	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

// PostgresStore reads documents and profiles from PostgreSQL and writes
// pipeline outcomes back.
type PostgresStore struct {
	db       *sql.DB
	tx       *sql.Tx
	subtypes []string
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithSubtypes restricts document loading to the given document subtypes.
func WithSubtypes(subtypes []string) Option {
	return func(s *PostgresStore) {
		s.subtypes = subtypes
	}
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPostgresTx constructs a PostgreSQL-backed profile store bound to a transaction.
func NewPostgresTx(tx *sql.Tx, opts ...Option) *PostgresStore {
	s := &PostgresStore{tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const (
	populateCandidatesQuery = `
		SELECT user_id FROM users
		ORDER BY
			CASE
				WHEN fields_verified IS NULL THEN 0
				WHEN fields_verified = false AND fields_verified_at IS NOT NULL THEN 1
				ELSE 2
			END ASC,
			COALESCE(fields_verified_at, updated_at) ASC,
			user_id ASC
		LIMIT $1
	`
	validateCandidatesQuery = `
		SELECT user_id FROM user_info
		ORDER BY
			CASE
				WHEN fields_verified_at IS NULL THEN 0
				WHEN fields_verified = false AND fields_verified_at IS NOT NULL THEN 1
				ELSE 2
			END ASC,
			COALESCE(fields_verified_at, updated_at) DESC,
			user_id ASC
		LIMIT $1
	`
)

// PopulateCandidates returns users never verified first, then users whose
// last build left fields unresolved, then the rest; oldest first within each
// group.
func (s *PostgresStore) PopulateCandidates(ctx context.Context, limit int) ([]id.UserID, error) {
	ids, err := s.candidates(ctx, populateCandidatesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("select populate candidates: %w", err)
	}
	return ids, nil
}

// ValidateCandidates orders user_info rows like PopulateCandidates but takes
// the most recently touched first within each group.
func (s *PostgresStore) ValidateCandidates(ctx context.Context, limit int) ([]id.UserID, error) {
	ids, err := s.candidates(ctx, validateCandidatesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("select validate candidates: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) candidates(ctx context.Context, query string, limit int) ([]id.UserID, error) {
	rows, err := s.execer().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []id.UserID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		ids = append(ids, id.UserID(userID))
	}
	return ids, rows.Err()
}

// LoadDocuments returns a person's documents in upload order.
func (s *PostgresStore) LoadDocuments(ctx context.Context, userID id.UserID, verifiedOnly bool) ([]models.Document, error) {
	query := `
		SELECT doc_id, user_id, doc_type, doc_subtype, doc_name, imported_from,
			doc_datatype, COALESCE(doc_data, ''), COALESCE(verification_result, false), uploaded_at
		FROM user_docs
		WHERE user_id = $1`
	args := []any{uuid.UUID(userID)}
	if verifiedOnly {
		query += ` AND verification_result = true`
	}
	if len(s.subtypes) > 0 {
		args = append(args, pq.Array(s.subtypes))
		query += fmt.Sprintf(` AND doc_subtype = ANY($%d)`, len(args))
	}
	query += ` ORDER BY uploaded_at ASC, doc_id ASC`

	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var (
			doc     models.Document
			docID   uuid.UUID
			ownerID uuid.UUID
		)
		if err := rows.Scan(&docID, &ownerID, &doc.DocType, &doc.DocSubtype, &doc.DocName, &doc.ImportedFrom,
			&doc.DocDatatype, &doc.DocData, &doc.Verified, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.ID = id.DocumentID(docID)
		doc.UserID = id.UserID(ownerID)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// LoadStoredProfile reads the persisted attributes the validator checks.
// Blank columns read back as nil.
func (s *PostgresStore) LoadStoredProfile(ctx context.Context, userID id.UserID) (models.StoredProfile, error) {
	query := `
		SELECT u.first_name, u.middle_name, u.last_name, to_char(u.date_of_birth, 'YYYY-MM-DD'),
			i.gender, i.annual_income::text, i.caste
		FROM users u
		LEFT JOIN user_info i ON i.user_id = u.user_id
		WHERE u.user_id = $1
	`
	var firstName, middleName, lastName, dob, gender, income, caste sql.NullString
	err := s.execer().QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&firstName, &middleName, &lastName, &dob, &gender, &income, &caste,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredProfile{}, sentinel.ErrNotFound
		}
		return models.StoredProfile{}, fmt.Errorf("load stored profile: %w", err)
	}

	stored := models.NewStoredProfile(userID)
	setText(stored.Attributes, models.AttrFirstName, firstName)
	setText(stored.Attributes, models.AttrMiddleName, middleName)
	setText(stored.Attributes, models.AttrLastName, lastName)
	setText(stored.Attributes, models.AttrGender, gender)
	setText(stored.Attributes, models.AttrDOB, dob)
	setText(stored.Attributes, models.AttrCaste, caste)
	if income.Valid && income.String != "" {
		stored.Attributes.Set(models.AttrIncome, jsonvalue.Number(income.String))
	}
	return stored, nil
}

func setText(p *models.Profile, field string, v sql.NullString) {
	if v.Valid && v.String != "" {
		p.Set(field, jsonvalue.String(v.String))
	}
}

// SSOID returns the identity provider subject linked to userID.
func (s *PostgresStore) SSOID(ctx context.Context, userID id.UserID) (string, error) {
	var ssoID sql.NullString
	err := s.execer().QueryRowContext(ctx, `SELECT sso_id FROM users WHERE user_id = $1`, uuid.UUID(userID)).Scan(&ssoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("load sso id: %w", err)
	}
	if !ssoID.Valid || ssoID.String == "" {
		return "", sentinel.ErrNotFound
	}
	return ssoID.String, nil
}

// ResetVerification marks the user as unverified ahead of a rebuild.
func (s *PostgresStore) ResetVerification(ctx context.Context, userID id.UserID, at time.Time) error {
	query := `
		UPDATE users
		SET fields_verified = false, fields_verified_at = $2, updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := s.execer().ExecContext(ctx, query, uuid.UUID(userID), at)
	if err != nil {
		return fmt.Errorf("reset verification: %w", err)
	}
	return requireRow(res, "reset verification")
}

// UpsertUserInfo creates or replaces the user_info row.
func (s *PostgresStore) UpsertUserInfo(ctx context.Context, info models.UserInfo) error {
	query := `
		INSERT INTO user_info (user_id, father_name, gender, caste, aadhaar, annual_income, class,
			student_type, previous_year_marks, dob, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			father_name = EXCLUDED.father_name,
			gender = EXCLUDED.gender,
			caste = EXCLUDED.caste,
			aadhaar = EXCLUDED.aadhaar,
			annual_income = EXCLUDED.annual_income,
			class = EXCLUDED.class,
			student_type = EXCLUDED.student_type,
			previous_year_marks = EXCLUDED.previous_year_marks,
			dob = EXCLUDED.dob,
			state = EXCLUDED.state,
			updated_at = NOW()
	`
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(info.UserID),
		info.FatherName,
		info.Gender,
		info.Caste,
		info.Aadhaar,
		info.AnnualIncome,
		info.Class,
		info.StudentType,
		info.PreviousYearMarks,
		info.DOB,
		info.State,
	)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("upsert user info: %w", sentinel.ErrNotFound)
		case isUniqueViolation(err):
			return fmt.Errorf("upsert user info: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("upsert user info: %w", err)
	}
	return nil
}

// WriteUserProfile stores built names and the verification snapshot. First
// and last name keep their previous values when the build left them nil.
func (s *PostgresStore) WriteUserProfile(ctx context.Context, outcome models.PopulateOutcome) error {
	provenance, err := json.Marshal(outcome.Provenance)
	if err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}
	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			middle_name = $4,
			date_of_birth = $5::date,
			fields_verified = $6,
			fields_verified_at = $7,
			fields_verification_data = $8,
			updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(outcome.UserID),
		outcome.Names.FirstName,
		outcome.Names.LastName,
		outcome.Names.MiddleName,
		outcome.Names.DOB,
		outcome.Complete,
		outcome.CompletedAt,
		provenance,
	)
	if err != nil {
		return fmt.Errorf("write user profile: %w", err)
	}
	return requireRow(res, "write user profile")
}

// WriteValidation stores corroboration results on user_info.
func (s *PostgresStore) WriteValidation(ctx context.Context, userID id.UserID, outcome models.ValidationOutcome) error {
	results := outcome.Results
	if results == nil {
		results = []models.ValidationResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode validation results: %w", err)
	}
	query := `
		UPDATE user_info
		SET fields_verified = $2, fields_verified_at = $3, fields_verified_data = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := s.execer().ExecContext(ctx, query, uuid.UUID(userID), outcome.AllVerified, outcome.VerifiedAt, data)
	if err != nil {
		return fmt.Errorf("write validation: %w", err)
	}
	return requireRow(res, "write validation")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
