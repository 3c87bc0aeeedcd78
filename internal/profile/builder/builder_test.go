package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/pkg/jsonvalue"
	"beneficiary/pkg/secrets"
	fixtures "beneficiary/pkg/testutil"
)

type fakeEncrypter struct{}

func (fakeEncrypter) Encrypt(plaintext string) (string, error) { return "sealed:" + plaintext, nil }

// BuilderSuite covers the first-match-wins reconciliation policy.
//
// Invariants:
//   - every configured field is present in the profile, nil when unresolved
//   - provenance names exactly the single document type that produced a value
//   - the same credentials always build the same profile
type BuilderSuite struct {
	suite.Suite
	builder  *Builder
	registry *transform.Registry
	metrics  *metrics.Metrics
	ctx      context.Context
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupTest() {
	s.ctx = context.Background()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.registry = transform.NewRegistry(fakeEncrypter{})
	s.builder = New(
		fixtures.MappingConfig(s.T()),
		s.registry,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *BuilderSuite) cred(docType, content string) *credential.Credential {
	return fixtures.Credential(s.T(), docType, credential.VCTypeW3C, content)
}

func (s *BuilderSuite) build(creds ...*credential.Credential) models.BuildResult {
	res, err := s.builder.Build(s.ctx, creds)
	s.Require().NoError(err)
	return res
}

func (s *BuilderSuite) TestFirstMatchWins() {
	aadhaar := s.cred("aadhaar", `{"subject":{"dob":"15-07-2001"}}`)
	marksheet := s.cred("marksheet", `{"student":{"dob":"2002-01-01"}}`)

	res := s.build(marksheet, aadhaar)

	s.Equal(jsonvalue.String("2001-07-15"), res.Profile.Get("dob"))
	s.Equal([]string{"aadhaar"}, res.Provenance["dob"], "lower priority documents are not recorded")
}

func (s *BuilderSuite) TestFallsThroughToNextDocType() {
	s.Run("first doc type absent", func() {
		res := s.build(s.cred("marksheet", `{"student":{"dob":"2002-01-01"}}`))
		s.Equal(jsonvalue.String("2002-01-01"), res.Profile.Get("dob"))
		s.Equal([]string{"marksheet"}, res.Provenance["dob"])
	})

	s.Run("first doc type yields nothing", func() {
		res := s.build(
			s.cred("aadhaar", `{"subject":{"dob":"not a date"}}`),
			s.cred("marksheet", `{"student":{"dob":"2002-01-01"}}`),
		)
		s.Equal(jsonvalue.String("2002-01-01"), res.Profile.Get("dob"))
		s.Equal([]string{"marksheet"}, res.Provenance["dob"])
	})

	s.Run("empty string is not a value", func() {
		res := s.build(
			s.cred("aadhaar", `{"subject":{"name":""}}`),
			s.cred("marksheet", `{"student":{"name":"Kiran Rao"}}`),
		)
		s.Equal(jsonvalue.String("Kiran"), res.Profile.Get("firstName"))
		s.Equal([]string{"marksheet"}, res.Provenance["firstName"])
	})
}

func (s *BuilderSuite) TestOnlyFirstCredentialOfATypeIsConsulted() {
	res := s.build(
		s.cred("marksheet", `{"student":{"class":""}}`),
		s.cred("marksheet", `{"student":{"class":"X"}}`),
	)
	s.Nil(res.Profile.Get("class"))
	s.Empty(res.Provenance["class"])
}

func (s *BuilderSuite) TestUnresolvedFieldsArePresentAndNil() {
	res := s.build()

	fields := res.Profile.Fields()
	s.Equal([]string{
		"firstName", "middleName", "lastName", "gender", "dob", "aadhaar",
		"caste", "annualIncome", "class", "previousYearMarks",
	}, fields)
	for _, f := range fields {
		s.Nil(res.Profile.Get(f), f)
		s.NotNil(res.Provenance[f], "provenance is an empty list, not missing")
		s.Empty(res.Provenance[f])
	}
	s.Equal(len(fields), res.Unresolved())
	s.False(res.Complete())
}

func (s *BuilderSuite) TestFullProfile() {
	res := s.build(
		s.cred("aadhaar", `{"subject":{"name":"Asha Devi Kumari","gender":"F","dob":"2001/07/15","uid":"999988887777"}}`),
		s.cred("marksheet", `{"student":{"name":"Asha Kumari","class":"XII","percentage":"88.5%"}}`),
		s.cred("casteCertificate", `{"subject":{"caste":"OBC"}}`),
		s.cred("incomeCertificate", `{"subject":{"income":"1,20,000"}}`),
	)

	p := res.Profile
	s.Equal(jsonvalue.String("Asha"), p.Get("firstName"))
	s.Equal(jsonvalue.String("Devi"), p.Get("middleName"))
	s.Equal(jsonvalue.String("Kumari"), p.Get("lastName"))
	s.Equal(jsonvalue.String("female"), p.Get("gender"))
	s.Equal(jsonvalue.String("2001-07-15"), p.Get("dob"))
	s.Equal(jsonvalue.String("sealed:999988887777"), p.Get("aadhaar"))
	s.Equal(jsonvalue.String("OBC"), p.Get("caste"))
	s.Equal(jsonvalue.Number("120000"), p.Get("annualIncome"))
	s.Equal(jsonvalue.Int(12), p.Get("class"))
	s.Equal(jsonvalue.String("88.50"), p.Get("previousYearMarks"))

	s.True(res.Complete())
	s.Equal([]string{"marksheet"}, res.Provenance["class"])
	s.Equal([]string{"incomeCertificate"}, res.Provenance["annualIncome"])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.FieldResolutionsTotal.WithLabelValues("dob", "true")))
}

func (s *BuilderSuite) TestZeroIncomeIsAValue() {
	res := s.build(s.cred("incomeCertificate", `{"subject":{"income":0}}`))
	s.Equal(jsonvalue.Number("0"), res.Profile.Get("annualIncome"))
	s.Equal([]string{"incomeCertificate"}, res.Provenance["annualIncome"])
}

func (s *BuilderSuite) TestTransformerErrorCountsAsUnresolved() {
	s.registry.Register("dob", func(in transform.Input) (jsonvalue.Value, error) {
		if in.Credential.DocType() == "aadhaar" {
			return nil, errors.New("boom")
		}
		return transform.DateOfBirth(in)
	})

	res := s.build(
		s.cred("aadhaar", `{"subject":{"dob":"2001-07-15"}}`),
		s.cred("marksheet", `{"student":{"dob":"2002-01-01"}}`),
	)
	s.Equal(jsonvalue.String("2002-01-01"), res.Profile.Get("dob"))
	s.Equal([]string{"marksheet"}, res.Provenance["dob"])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TransformFailuresTotal.WithLabelValues("dob")))
}

func (s *BuilderSuite) TestRejectedIncomeIsUnresolved() {
	res := s.build(s.cred("incomeCertificate", `{"subject":{"income":-10}}`))
	s.Nil(res.Profile.Get("annualIncome"))
	s.Empty(res.Provenance["annualIncome"])
}

func (s *BuilderSuite) TestIdempotent() {
	creds := []*credential.Credential{
		s.cred("aadhaar", `{"subject":{"name":"Ravi Kumar","dob":"01-02-2003"}}`),
		s.cred("marksheet", `{"student":{"class":"IX"}}`),
	}

	first, err := s.builder.Build(s.ctx, creds)
	s.Require().NoError(err)
	second, err := s.builder.Build(s.ctx, creds)
	s.Require().NoError(err)

	s.True(first.Profile.Equal(second.Profile))
	s.Equal(first.Provenance, second.Provenance)
}

func (s *BuilderSuite) TestIdempotentWithSealedAadhaar() {
	cipher, err := secrets.NewCipher([]byte("0123456789abcdef0123"), nil)
	s.Require().NoError(err)
	b := New(fixtures.MappingConfig(s.T()), transform.NewRegistry(cipher.Deterministic()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	creds := []*credential.Credential{
		s.cred("aadhaar", `{"subject":{"name":"Ravi Kumar","uid":"999988887777"}}`),
	}

	first, err := b.Build(s.ctx, creds)
	s.Require().NoError(err)
	second, err := b.Build(s.ctx, creds)
	s.Require().NoError(err)

	sealed, ok := jsonvalue.Text(first.Profile.Get("aadhaar"))
	s.Require().True(ok)
	s.NotEqual("999988887777", sealed)
	s.True(first.Profile.Equal(second.Profile), "sealed aadhaar is stable across runs")

	plain, err := cipher.Decrypt(sealed)
	s.Require().NoError(err)
	s.Equal("999988887777", plain)
}

func (s *BuilderSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.builder.Build(ctx, nil)
	s.ErrorIs(err, context.Canceled)
}
