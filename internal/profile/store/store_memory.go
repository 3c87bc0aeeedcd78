package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"beneficiary/internal/profile/models"
	"beneficiary/internal/profile/ports"
	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

// UserRecord mirrors the users columns the pipelines touch.
type UserRecord struct {
	UserID           id.UserID
	SSOID            string
	Names            models.UserNames
	FieldsVerified   *bool
	FieldsVerifiedAt *time.Time
	Provenance       models.Provenance
	UpdatedAt        time.Time
}

// InfoRecord mirrors the user_info columns the pipelines touch.
type InfoRecord struct {
	Info             models.UserInfo
	FieldsVerified   *bool
	FieldsVerifiedAt *time.Time
	Results          []models.ValidationResult
	UpdatedAt        time.Time
}

// InMemoryStore is a process-local profile store for development and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	users map[id.UserID]UserRecord
	info  map[id.UserID]InfoRecord
	docs  map[id.UserID][]models.Document
	now   func() time.Time
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[id.UserID]UserRecord),
		info:  make(map[id.UserID]InfoRecord),
		docs:  make(map[id.UserID][]models.Document),
		now:   time.Now,
	}
}

// AddUser inserts or replaces a users row.
func (s *InMemoryStore) AddUser(userID id.UserID, names models.UserNames) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = UserRecord{UserID: userID, Names: names, UpdatedAt: s.now()}
}

// LinkSSO records the identity provider subject for userID.
func (s *InMemoryStore) LinkSSO(userID id.UserID, ssoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.SSOID = ssoID
		s.users[userID] = u
	}
}

// AddDocument appends a stored document for its owner.
func (s *InMemoryStore) AddDocument(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = s.now()
	}
	s.docs[doc.UserID] = append(s.docs[doc.UserID], doc)
}

// User returns the users row for userID.
func (s *InMemoryStore) User(userID id.UserID) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// Info returns the user_info row for userID.
func (s *InMemoryStore) Info(userID id.UserID) (InfoRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.info[userID]
	return i, ok
}

func (s *InMemoryStore) PopulateCandidates(ctx context.Context, limit int) ([]id.UserID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]candidate, 0, len(s.users))
	for _, u := range s.users {
		rows = append(rows, candidate{u.UserID, u.FieldsVerified, u.FieldsVerifiedAt, u.UpdatedAt})
	}
	s.mu.RUnlock()
	return pick(rows, limit, false), nil
}

func (s *InMemoryStore) ValidateCandidates(ctx context.Context, limit int) ([]id.UserID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]candidate, 0, len(s.info))
	for userID, i := range s.info {
		rows = append(rows, candidate{userID, i.FieldsVerified, i.FieldsVerifiedAt, i.UpdatedAt})
	}
	s.mu.RUnlock()
	return pick(rows, limit, true), nil
}

type candidate struct {
	userID     id.UserID
	verified   *bool
	verifiedAt *time.Time
	updatedAt  time.Time
}

// group matches the candidate ordering of the Postgres queries. Validation
// candidates group on the timestamp alone.
func (c candidate) group(validate bool) int {
	switch {
	case validate && c.verifiedAt == nil, !validate && c.verified == nil:
		return 0
	case c.verified != nil && !*c.verified && c.verifiedAt != nil:
		return 1
	default:
		return 2
	}
}

func (c candidate) touched() time.Time {
	if c.verifiedAt != nil {
		return *c.verifiedAt
	}
	return c.updatedAt
}

func pick(rows []candidate, limit int, validate bool) []id.UserID {
	sort.SliceStable(rows, func(i, j int) bool {
		gi, gj := rows[i].group(validate), rows[j].group(validate)
		if gi != gj {
			return gi < gj
		}
		ti, tj := rows[i].touched(), rows[j].touched()
		if !ti.Equal(tj) {
			if validate {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		return rows[i].userID.String() < rows[j].userID.String()
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	ids := make([]id.UserID, len(rows))
	for i, r := range rows {
		ids[i] = r.userID
	}
	return ids
}

func (s *InMemoryStore) LoadDocuments(ctx context.Context, userID id.UserID, verifiedOnly bool) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []models.Document
	for _, d := range s.docs[userID] {
		if verifiedOnly && !d.Verified {
			continue
		}
		docs = append(docs, d)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs, nil
}

func (s *InMemoryStore) LoadStoredProfile(ctx context.Context, userID id.UserID) (models.StoredProfile, error) {
	if err := ctx.Err(); err != nil {
		return models.StoredProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.StoredProfile{}, sentinel.ErrNotFound
	}
	stored := models.NewStoredProfile(userID)
	setPtr(stored.Attributes, models.AttrFirstName, u.Names.FirstName)
	setPtr(stored.Attributes, models.AttrMiddleName, u.Names.MiddleName)
	setPtr(stored.Attributes, models.AttrLastName, u.Names.LastName)
	setPtr(stored.Attributes, models.AttrDOB, u.Names.DOB)
	if i, ok := s.info[userID]; ok {
		setPtr(stored.Attributes, models.AttrGender, i.Info.Gender)
		setPtr(stored.Attributes, models.AttrCaste, i.Info.Caste)
		if i.Info.AnnualIncome != nil {
			stored.Attributes.Set(models.AttrIncome, jsonvalue.Float(*i.Info.AnnualIncome))
		}
	}
	return stored, nil
}

func setPtr(p *models.Profile, field string, v *string) {
	if v != nil && *v != "" {
		p.Set(field, jsonvalue.String(*v))
	}
}

func (s *InMemoryStore) SSOID(_ context.Context, userID id.UserID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || u.SSOID == "" {
		return "", sentinel.ErrNotFound
	}
	return u.SSOID, nil
}

func (s *InMemoryStore) ResetVerification(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	verified := false
	u.FieldsVerified = &verified
	u.FieldsVerifiedAt = &at
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (s *InMemoryStore) UpsertUserInfo(_ context.Context, info models.UserInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[info.UserID]; !ok {
		return sentinel.ErrNotFound
	}
	rec := s.info[info.UserID]
	rec.Info = info
	rec.UpdatedAt = s.now()
	s.info[info.UserID] = rec
	return nil
}

func (s *InMemoryStore) WriteUserProfile(_ context.Context, outcome models.PopulateOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[outcome.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if outcome.Names.FirstName != nil {
		u.Names.FirstName = outcome.Names.FirstName
	}
	if outcome.Names.LastName != nil {
		u.Names.LastName = outcome.Names.LastName
	}
	u.Names.MiddleName = outcome.Names.MiddleName
	u.Names.DOB = outcome.Names.DOB
	complete := outcome.Complete
	at := outcome.CompletedAt
	u.FieldsVerified = &complete
	u.FieldsVerifiedAt = &at
	u.Provenance = outcome.Provenance
	u.UpdatedAt = s.now()
	s.users[outcome.UserID] = u
	return nil
}

func (s *InMemoryStore) WriteValidation(_ context.Context, userID id.UserID, outcome models.ValidationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.info[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	verified := outcome.AllVerified
	at := outcome.VerifiedAt
	rec.FieldsVerified = &verified
	rec.FieldsVerifiedAt = &at
	rec.Results = slices.Clone(outcome.Results)
	rec.UpdatedAt = s.now()
	s.info[userID] = rec
	return nil
}

// RunInTx serialises units of work and restores the previous state when fn
// fails.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, w ports.ProfileWriter) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	users := maps.Clone(s.users)
	info := maps.Clone(s.info)
	s.mu.RUnlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.users = users
		s.info = info
		s.mu.Unlock()
		return err
	}
	return nil
}
