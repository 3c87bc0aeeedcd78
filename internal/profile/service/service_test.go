package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/internal/profile/ports"
	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	dErrors "beneficiary/pkg/domain-errors"
	"beneficiary/pkg/jsonvalue"
	fixtures "beneficiary/pkg/testutil"
)

func (s *ServiceSuite) TestNew() {
	s.Run("missing document loader", func() {
		_, err := New(nil, s.profiles, s.uow, s.engine)
		s.ErrorContains(err, "document loader is required")
	})

	s.Run("missing profile store", func() {
		_, err := New(s.docs, nil, s.uow, s.engine)
		s.ErrorContains(err, "profile store is required")
	})

	s.Run("missing unit of work", func() {
		_, err := New(s.docs, s.profiles, nil, s.engine)
		s.ErrorContains(err, "unit of work is required")
	})

	s.Run("incomplete engine", func() {
		_, err := New(s.docs, s.profiles, s.uow, Engine{Builder: s.engine.Builder})
		s.Error(err)
	})

	s.Run("defaults", func() {
		svc, err := New(s.docs, s.profiles, s.uow, s.engine)
		s.Require().NoError(err)
		s.Equal(defaultBatchSize, svc.BatchSize())
	})
}

func (s *ServiceSuite) TestPopulatePerson() {
	user := fixtures.TestIDs.UserID1
	docs := []models.Document{
		s.doc(user, "aadhaar", `{"subject":{"name":"Asha Devi Kumari","gender":"F","dob":"15-07-2001","uid":"999988887777"}}`),
		s.doc(user, "marksheet", `{"student":{"class":"XII","percentage":72}}`),
		s.doc(user, "incomeCertificate", `{"subject":{"income":"1,20,000"}}`),
		s.doc(user, "casteCertificate", `{"subject":{"caste":"OBC"}}`),
	}

	var (
		info    models.UserInfo
		outcome models.PopulateOutcome
		event   models.ProfileEvent
	)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(docs, nil)
	s.expectTx()
	s.writer.EXPECT().ResetVerification(gomock.Any(), user, fixedNow).Return(nil)
	s.writer.EXPECT().UpsertUserInfo(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got models.UserInfo) error {
			info = got
			return nil
		})
	s.writer.EXPECT().WriteUserProfile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got models.PopulateOutcome) error {
			outcome = got
			return nil
		})
	s.identity.EXPECT().UpdateNames(gomock.Any(), user, strPtr("Asha"), strPtr("Kumari")).Return(nil)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got models.ProfileEvent) error {
			event = got
			return nil
		})

	out, err := s.service.PopulatePerson(s.ctx, user)
	s.Require().NoError(err)

	s.Equal(outcome, *out)
	s.True(out.Complete)
	s.Zero(out.Unresolved)
	s.Equal(fixedNow, out.CompletedAt)
	s.Equal("Asha", *out.Names.FirstName)
	s.Equal("Devi", *out.Names.MiddleName)
	s.Equal("2001-07-15", *out.Names.DOB)
	s.Equal([]string{"aadhaar"}, out.Provenance["dob"])

	s.Equal(user, info.UserID)
	s.Equal("female", *info.Gender)
	s.Equal("OBC", *info.Caste)
	s.Equal(120000.0, *info.AnnualIncome)
	s.Equal(12, *info.Class)
	s.Equal("72.00", *info.PreviousYearMarks)
	s.Require().NotNil(info.Aadhaar)
	s.NotEqual("999988887777", *info.Aadhaar, "aadhaar is stored encrypted")
	plain, err := s.cipher.Decrypt(*info.Aadhaar)
	s.Require().NoError(err)
	s.Equal("999988887777", plain)

	s.Equal(models.EventPopulated, event.Type)
	s.Equal(user.String(), event.UserID)
	s.True(event.Complete)
	s.Nil(event.Results)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.RunsTotal.WithLabelValues(metrics.PipelinePopulate, metrics.OutcomeSuccess)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsPublishedTotal.WithLabelValues(string(models.EventPopulated), metrics.OutcomeSuccess)))
}

func (s *ServiceSuite) TestPopulatePersonWithoutDocuments() {
	user := fixtures.TestIDs.UserID1
	var outcome models.PopulateOutcome

	s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
	s.expectPopulateWrites(user, &outcome)
	s.identity.EXPECT().UpdateNames(gomock.Any(), user, nil, nil).Return(nil)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	out, err := s.service.PopulatePerson(s.ctx, user)
	s.Require().NoError(err)
	s.False(out.Complete)
	s.Equal(10, out.Unresolved)
	s.Nil(out.Names.FirstName, "nil first name keeps the stored value")
	s.Nil(out.Info.AnnualIncome)
	for field, docs := range out.Provenance {
		s.Empty(docs, field)
	}
}

func (s *ServiceSuite) TestPopulatePersonErrors() {
	user := fixtures.TestIDs.UserID1

	s.Run("document load failure", func() {
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, errors.New("connection reset"))

		_, err := s.service.PopulatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("unknown user rolls back", func() {
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
		s.expectTx()
		s.writer.EXPECT().ResetVerification(gomock.Any(), user, fixedNow).Return(sentinel.ErrNotFound)

		_, err := s.service.PopulatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("user info upsert failure stops the write", func() {
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
		s.expectTx()
		s.writer.EXPECT().ResetVerification(gomock.Any(), user, fixedNow).Return(nil)
		s.writer.EXPECT().UpsertUserInfo(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.PopulatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestPopulatePersonSideEffectsAreBestEffort() {
	user := fixtures.TestIDs.UserID1

	s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
	s.expectPopulateWrites(user, nil)
	s.identity.EXPECT().UpdateNames(gomock.Any(), user, nil, nil).Return(errors.New("identity provider down"))
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	_, err := s.service.PopulatePerson(s.ctx, user)
	s.NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.IdentitySyncFailedTotal))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsPublishedTotal.WithLabelValues(string(models.EventPopulated), metrics.OutcomeFailed)))
}

func (s *ServiceSuite) TestPopulateBatchSurvivesUnreadableDocument() {
	u1, u2, u3 := fixtures.TestIDs.UserID1, fixtures.TestIDs.UserID2, fixtures.TestIDs.UserID3
	aadhaar := `{"subject":{"name":"Ravi Kumar","dob":"2003-02-01"}}`
	broken := fixtures.NewDocumentBuilder().ForUser(u2).WithRawData("not-a-ciphertext").Build()

	s.profiles.EXPECT().PopulateCandidates(gomock.Any(), 3).Return([]id.UserID{u1, u2, u3}, nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), u1, false).Return([]models.Document{s.doc(u1, "aadhaar", aadhaar)}, nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), u2, false).Return([]models.Document{broken}, nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), u3, false).Return([]models.Document{s.doc(u3, "aadhaar", aadhaar)}, nil)

	outcomes := map[id.UserID]models.PopulateOutcome{}
	s.uow.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, ports.ProfileWriter) error) error {
			return fn(ctx, s.writer)
		})
	s.writer.EXPECT().ResetVerification(gomock.Any(), gomock.Any(), fixedNow).Times(3).Return(nil)
	s.writer.EXPECT().UpsertUserInfo(gomock.Any(), gomock.Any()).Times(3).Return(nil)
	s.writer.EXPECT().WriteUserProfile(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(
		func(_ context.Context, o models.PopulateOutcome) error {
			outcomes[o.UserID] = o
			return nil
		})
	s.identity.EXPECT().UpdateNames(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(3).Return(nil)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(3).Return(nil)

	report, err := s.service.RunPopulateBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.BatchReport{Pipeline: metrics.PipelinePopulate, Picked: 3, Succeeded: 3}, report)

	s.Equal("2003-02-01", *outcomes[u1].Names.DOB)
	s.Equal("2003-02-01", *outcomes[u3].Names.DOB)
	s.Nil(outcomes[u2].Names.DOB, "the unreadable document contributes nothing")
	s.Equal(10, outcomes[u2].Unresolved)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.BatchSize.WithLabelValues(metrics.PipelinePopulate)))
}

func (s *ServiceSuite) TestPopulateBatchContinuesAfterPersistenceFailure() {
	u1, u2, u3 := fixtures.TestIDs.UserID1, fixtures.TestIDs.UserID2, fixtures.TestIDs.UserID3

	s.profiles.EXPECT().PopulateCandidates(gomock.Any(), 3).Return([]id.UserID{u1, u2, u3}, nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), gomock.Any(), false).Times(3).Return(nil, nil)
	s.uow.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, ports.ProfileWriter) error) error {
			return fn(ctx, s.writer)
		})
	s.writer.EXPECT().ResetVerification(gomock.Any(), gomock.Any(), fixedNow).Times(3).Return(nil)
	s.writer.EXPECT().UpsertUserInfo(gomock.Any(), gomock.Any()).Times(3).Return(nil)
	s.writer.EXPECT().WriteUserProfile(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(
		func(_ context.Context, o models.PopulateOutcome) error {
			if o.UserID == u2 {
				return errors.New("deadlock detected")
			}
			return nil
		})
	s.identity.EXPECT().UpdateNames(gomock.Any(), gomock.Not(u2), gomock.Any(), gomock.Any()).Times(2).Return(nil)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(2).Return(nil)

	report, err := s.service.RunPopulateBatch(s.ctx)
	s.Require().Error(err)
	s.ErrorContains(err, u2.String())
	s.Equal(2, report.Succeeded)
	s.Equal(1, report.Failed)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RunsTotal.WithLabelValues(metrics.PipelinePopulate, metrics.OutcomeFailed)))
}

func (s *ServiceSuite) TestPopulateBatchCandidateFailure() {
	s.profiles.EXPECT().PopulateCandidates(gomock.Any(), 3).Return(nil, sentinel.ErrUnavailable)

	report, err := s.service.RunPopulateBatch(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Zero(report.Picked)
}

func (s *ServiceSuite) TestBatchStopsOnCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	report, err := s.service.PopulateUsers(ctx, []id.UserID{fixtures.TestIDs.UserID1, fixtures.TestIDs.UserID2})
	s.ErrorIs(err, context.Canceled)
	s.Equal(2, report.Picked)
	s.Zero(report.Succeeded + report.Failed)
}

func (s *ServiceSuite) TestLease() {
	user := fixtures.TestIDs.UserID1
	svc := s.newService(WithLease(s.lease))

	s.Run("held lease skips the person", func() {
		s.lease.EXPECT().Acquire(gomock.Any(), leaseKey(user)).Times(2).Return("", sentinel.ErrLeaseHeld)

		report, err := svc.PopulateUsers(s.ctx, []id.UserID{user})
		s.NoError(err)
		s.Equal(1, report.Skipped)

		_, err = svc.PopulatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeLocked))
	})

	s.Run("acquired lease is released", func() {
		s.lease.EXPECT().Acquire(gomock.Any(), leaseKey(user)).Return("token-1", nil)
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
		s.expectPopulateWrites(user, nil)
		s.identity.EXPECT().UpdateNames(gomock.Any(), user, nil, nil).Return(nil)
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
		s.lease.EXPECT().Release(gomock.Any(), leaseKey(user), "token-1").Return(nil)

		_, err := svc.PopulatePerson(s.ctx, user)
		s.NoError(err)
	})

	s.Run("unreachable lease backend does not block processing", func() {
		s.lease.EXPECT().Acquire(gomock.Any(), leaseKey(user)).Return("", errors.New("redis: connection refused"))
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, false).Return(nil, nil)
		s.expectPopulateWrites(user, nil)
		s.identity.EXPECT().UpdateNames(gomock.Any(), user, nil, nil).Return(nil)
		s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		_, err := svc.PopulatePerson(s.ctx, user)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestValidatePerson() {
	user := fixtures.TestIDs.UserID1
	stored := models.NewStoredProfile(user)
	stored.Attributes.Set(models.AttrFirstName, jsonvalue.String("Asha"))
	stored.Attributes.Set(models.AttrGender, jsonvalue.String("female"))
	stored.Attributes.Set(models.AttrDOB, jsonvalue.String("2001-07-15"))

	docs := []models.Document{
		s.doc(user, "aadhaar", `{"subject":{"first":"Asha","gender":"F","dob":"15-07-2001"}}`),
	}

	var (
		written models.ValidationOutcome
		event   models.ProfileEvent
	)
	s.profiles.EXPECT().LoadStoredProfile(gomock.Any(), user).Return(stored, nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), user, true).Return(docs, nil)
	s.expectTx()
	s.writer.EXPECT().WriteValidation(gomock.Any(), user, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ id.UserID, o models.ValidationOutcome) error {
			written = o
			return nil
		})
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e models.ProfileEvent) error {
			event = e
			return nil
		})

	out, err := s.service.ValidatePerson(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(written, *out)
	s.Equal(fixedNow, out.VerifiedAt)
	s.Len(out.Results, len(models.StoredAttributes))
	s.False(out.AllVerified, "unset attributes are never verified")

	verified := map[string][]string{}
	for _, r := range out.Results {
		if r.Verified {
			verified[r.Attribute] = r.DocsUsed
		}
	}
	s.Equal(map[string][]string{
		models.AttrFirstName: {"aadhaar"},
		models.AttrGender:    {"aadhaar"},
		models.AttrDOB:       {"aadhaar"},
	}, verified)

	s.Equal(models.EventValidated, event.Type)
	s.Equal(out.Results, event.Results)
	s.False(event.Complete)
}

func (s *ServiceSuite) TestValidatePersonErrors() {
	user := fixtures.TestIDs.UserID1

	s.Run("missing user", func() {
		s.profiles.EXPECT().LoadStoredProfile(gomock.Any(), user).Return(models.StoredProfile{}, sentinel.ErrNotFound)

		_, err := s.service.ValidatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("write failure", func() {
		s.profiles.EXPECT().LoadStoredProfile(gomock.Any(), user).Return(models.NewStoredProfile(user), nil)
		s.docs.EXPECT().LoadDocuments(gomock.Any(), user, true).Return(nil, nil)
		s.uow.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)

		_, err := s.service.ValidatePerson(s.ctx, user)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func (s *ServiceSuite) TestValidateBatch() {
	u1, u2 := fixtures.TestIDs.UserID1, fixtures.TestIDs.UserID2

	s.profiles.EXPECT().ValidateCandidates(gomock.Any(), 3).Return([]id.UserID{u1, u2}, nil)
	s.profiles.EXPECT().LoadStoredProfile(gomock.Any(), u1).Return(models.StoredProfile{}, sentinel.ErrNotFound)
	s.profiles.EXPECT().LoadStoredProfile(gomock.Any(), u2).Return(models.NewStoredProfile(u2), nil)
	s.docs.EXPECT().LoadDocuments(gomock.Any(), u2, true).Return(nil, nil)
	s.expectTx()
	s.writer.EXPECT().WriteValidation(gomock.Any(), u2, gomock.Any()).Return(nil)
	s.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	report, err := s.service.RunValidateBatch(s.ctx)
	s.Error(err)
	s.Equal(models.BatchReport{Pipeline: metrics.PipelineValidate, Picked: 2, Succeeded: 1, Failed: 1}, report)
}
