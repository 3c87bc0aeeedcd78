package testutil

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/mapping"
	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

// TestIDs provides fixed IDs for deterministic test data.
var TestIDs = struct {
	UserID1     id.UserID
	UserID2     id.UserID
	UserID3     id.UserID
	DocumentID1 id.DocumentID
	DocumentID2 id.DocumentID
}{
	UserID1:     id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:     id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	UserID3:     id.UserID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
	DocumentID1: id.DocumentID(uuid.MustParse("dddd0000-0000-0000-0000-000000000001")),
	DocumentID2: id.DocumentID(uuid.MustParse("dddd0000-0000-0000-0000-000000000002")),
}

// Credential parses content and builds a credential, failing the test on
// any error.
func Credential(t testing.TB, docType string, vcType credential.VCType, content string) *credential.Credential {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(content))
	require.NoError(t, err)
	c, err := credential.New(id.NewDocumentID(), docType, vcType, credential.FormatJSON, v)
	require.NoError(t, err)
	return c
}

// Encrypter is the sealing half of the document cipher.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// DocumentBuilder provides a fluent interface for stored documents.
type DocumentBuilder struct {
	doc models.Document
}

// NewDocumentBuilder returns a W3C JSON aadhaar document with an empty payload.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{
		doc: models.Document{
			ID:           id.NewDocumentID(),
			UserID:       TestIDs.UserID1,
			DocType:      "idProof",
			DocSubtype:   "aadhaar",
			DocName:      "aadhaar.json",
			ImportedFrom: "e-wallet",
			DocDatatype:  "Application/JSON",
			Verified:     true,
			UploadedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *DocumentBuilder) WithID(docID id.DocumentID) *DocumentBuilder {
	b.doc.ID = docID
	return b
}

func (b *DocumentBuilder) ForUser(userID id.UserID) *DocumentBuilder {
	b.doc.UserID = userID
	return b
}

func (b *DocumentBuilder) WithSubtype(subtype string) *DocumentBuilder {
	b.doc.DocSubtype = subtype
	b.doc.DocName = subtype + ".json"
	return b
}

func (b *DocumentBuilder) FromDigilocker() *DocumentBuilder {
	b.doc.ImportedFrom = credential.SourceDigilocker
	return b
}

func (b *DocumentBuilder) Unverified() *DocumentBuilder {
	b.doc.Verified = false
	return b
}

// WithRawData stores data as-is, bypassing encryption.
func (b *DocumentBuilder) WithRawData(data string) *DocumentBuilder {
	b.doc.DocData = data
	return b
}

// WithContent encrypts content with enc and stores the ciphertext.
func (b *DocumentBuilder) WithContent(t testing.TB, enc Encrypter, content string) *DocumentBuilder {
	t.Helper()
	ct, err := enc.Encrypt(content)
	require.NoError(t, err)
	b.doc.DocData = ct
	return b
}

func (b *DocumentBuilder) Build() models.Document {
	return b.doc
}

// MappingFS is a compact but complete mapping tree covering every transformer
// and validator strategy.
func MappingFS() fstest.MapFS {
	return fstest.MapFS{
		"vcArray.json": {Data: []byte(`{
			"firstName": ["aadhaar", "marksheet"],
			"middleName": ["aadhaar"],
			"lastName": ["aadhaar", "marksheet"],
			"gender": ["aadhaar"],
			"dob": ["aadhaar", "marksheet"],
			"aadhaar": ["aadhaar"],
			"caste": ["casteCertificate"],
			"annualIncome": ["incomeCertificate"],
			"class": ["marksheet"],
			"previousYearMarks": ["marksheet"]
		}`)},
		"documents.json": {Data: []byte(`[
			{"name": "Aadhaar Card", "documentSubType": "aadhaar"},
			{"name": "Marksheet", "documentSubType": "marksheet"},
			{"name": "Caste Certificate", "documentSubType": "casteCertificate"},
			{"name": "Income Certificate", "documentSubType": "incomeCertificate"}
		]`)},
		"vcPaths/aadhaar.json": {Data: []byte(`{
			"name": "subject.name", "gender": "subject.gender", "dob": "subject.dob", "aadhaar": "subject.uid"
		}`)},
		"vcPaths/marksheet.json": {Data: []byte(`{
			"name": "student.name", "dob": "student.dob", "class": "student.class", "previousYearMarks": "student.percentage"
		}`)},
		"vcPaths/casteCertificate.json":  {Data: []byte(`{"caste": "subject.caste"}`)},
		"vcPaths/incomeCertificate.json": {Data: []byte(`{"annualIncome": "subject.income"}`)},
		"validator/config.json": {Data: []byte(`{
			"firstName": ["aadhaar", "marksheet"],
			"middleName": ["aadhaar"],
			"lastName": ["aadhaar", "marksheet"],
			"gender": ["aadhaar"],
			"dob": ["aadhaar", "marksheet"],
			"income": ["incomeCertificate"],
			"caste": ["casteCertificate"]
		}`)},
		"validator/fieldValues.json":        {Data: []byte(`{"caste": {"obc": ["obc", "other backward class"]}}`)},
		"validator/nameFieldsPosition.json": {Data: []byte(`{"aadhaar": {"firstName": 0, "middleName": 1, "lastName": 2}, "marksheet": {"firstName": 0, "lastName": 1}}`)},
		"validator/docToFieldMaps/aadhaar.json": {Data: []byte(`[
			{"vcType": "digilocker", "format": "json", "fields": {"name": "subject.name", "gender": "subject.gender", "dob": "subject.dob"}},
			{"vcType": "w3c", "format": "json", "fields": {"firstName": "subject.first", "middleName": "subject.middle", "lastName": "subject.last", "gender": "subject.gender", "dob": "subject.dob"}}
		]`)},
		"validator/docToFieldMaps/marksheet.json": {Data: []byte(`[
			{"vcType": "digilocker", "format": "json", "fields": {"name": "student.name", "dob": "student.dob"}},
			{"vcType": "w3c", "format": "json", "fields": {"firstName": "student.first", "lastName": "student.last", "dob": "student.dob"}}
		]`)},
		"validator/docToFieldMaps/incomeCertificate.json": {Data: []byte(`[
			{"vcType": "w3c", "format": "json", "fields": {"income": "subject.income"}}
		]`)},
		"validator/docToFieldMaps/casteCertificate.json": {Data: []byte(`[
			{"vcType": "w3c", "format": "json", "fields": {"caste": "subject.caste"}}
		]`)},
	}
}

// MappingConfig loads MappingFS.
func MappingConfig(t testing.TB) *mapping.Config {
	t.Helper()
	cfg, err := mapping.Load(MappingFS())
	require.NoError(t, err)
	return cfg
}
