package provision_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	provision "github.com/goliatone/go-provision"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activationTemplate() *provision.EmailTemplate {
	return &provision.EmailTemplate{
		Code:    provision.TemplateCodeActivation,
		Subject: "Your account is ready",
		Body:    "You can now sign in.",
	}
}

func pendingApplicant(t *testing.T, email, code string) (*provision.Applicant, string) {
	t.Helper()
	hashed, plain, err := provision.HashTemporary(code)
	require.NoError(t, err)
	return &provision.Applicant{
		ID:           uuid.New(),
		EmailAddress: email,
		Password:     hashed,
	}, plain
}

func TestActivateAccountHappyPath(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	applicants := &MockApplicants{}
	individuals := &MockIndividuals{}
	accounts := &MockAccounts{}
	templates := &MockTemplates{}
	notifier := &MockNotifier{}

	applicant, plain := pendingApplicant(t, "owner@example.com", "op3rat0r")

	runInTxPassthrough(t, repo)
	repo.On("CountUsedEmail", mock.Anything, mock.Anything, "owner@example.com").
		Return(0, nil).Once()
	repo.On("Applicants").Return(applicants)
	repo.On("Individuals").Return(individuals)
	repo.On("Accounts").Return(accounts)

	applicants.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(applicant, nil).Once()

	individualID := uuid.New()
	individuals.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(i *provision.Individual) bool {
		return i.EmailAddress == "owner@example.com"
	})).Return(&provision.Individual{ID: individualID, EmailAddress: "owner@example.com"}, nil).Once()

	accounts.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a *provision.Account) bool {
		if a.LoginID != "owner@example.com" || a.IndividualID == nil {
			return false
		}
		// The permanent password is stored hashed, never verbatim.
		return a.Password != "myNewPassword42" &&
			provision.ComparePasswordAndHash("myNewPassword42", a.Password) == nil &&
			*a.IndividualID == individualID
	})).Return(&provision.Account{}, nil).Once()

	applicants.On("DeleteByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(nil).Once()

	templates.On("GetByCode", mock.Anything, provision.TemplateCodeActivation).
		Return(activationTemplate(), nil).Once()
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	composer := provision.NewEmailComposer(templates)
	handler := provision.NewActivateAccountHandler(repo, composer, notifier, "noreply@example.com", testLogger{})

	err := handler.Execute(ctx, provision.ActivateAccountMessage{
		EmailAddress:      "owner@example.com",
		TemporaryCode:     "op3rat0r",
		TemporaryPassword: plain,
		Password:          "myNewPassword42",
	})

	require.NoError(t, err)

	repo.AssertExpectations(t)
	applicants.AssertExpectations(t)
	individuals.AssertExpectations(t)
	accounts.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestActivateAccountRejectsUsedEmail(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}

	runInTxPassthrough(t, repo)
	repo.On("CountUsedEmail", mock.Anything, mock.Anything, "owner@example.com").
		Return(1, nil).Once()

	composer := provision.NewEmailComposer(&MockTemplates{})
	handler := provision.NewActivateAccountHandler(repo, composer, &MockNotifier{}, "noreply@example.com", testLogger{})

	err := handler.Execute(ctx, provision.ActivateAccountMessage{
		EmailAddress:      "owner@example.com",
		TemporaryCode:     "op3rat0r",
		TemporaryPassword: "whatever1",
		Password:          "myNewPassword42",
	})

	require.Error(t, err)
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, provision.TextCodeAlreadyRegistered, richErr.TextCode)
}

func TestActivateAccountUnknownApplicant(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	applicants := &MockApplicants{}

	runInTxPassthrough(t, repo)
	repo.On("CountUsedEmail", mock.Anything, mock.Anything, "owner@example.com").
		Return(0, nil).Once()
	repo.On("Applicants").Return(applicants)

	applicants.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	composer := provision.NewEmailComposer(&MockTemplates{})
	handler := provision.NewActivateAccountHandler(repo, composer, &MockNotifier{}, "noreply@example.com", testLogger{})

	err := handler.Execute(ctx, provision.ActivateAccountMessage{
		EmailAddress:      "owner@example.com",
		TemporaryCode:     "op3rat0r",
		TemporaryPassword: "whatever1",
		Password:          "myNewPassword42",
	})

	require.Error(t, err)
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, provision.TextCodeApplicantNotFound, richErr.TextCode)
}

func TestActivateAccountRejectsBadProof(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	applicants := &MockApplicants{}
	individuals := &MockIndividuals{}

	applicant, plain := pendingApplicant(t, "owner@example.com", "op3rat0r")

	runInTxPassthrough(t, repo)
	repo.On("CountUsedEmail", mock.Anything, mock.Anything, "owner@example.com").
		Return(0, nil)
	repo.On("Applicants").Return(applicants)

	applicants.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(applicant, nil)

	composer := provision.NewEmailComposer(&MockTemplates{})
	handler := provision.NewActivateAccountHandler(repo, composer, &MockNotifier{}, "noreply@example.com", testLogger{})

	attempts := []provision.ActivateAccountMessage{
		{
			EmailAddress:      "owner@example.com",
			TemporaryCode:     "wrongcode",
			TemporaryPassword: plain,
			Password:          "myNewPassword42",
		},
		{
			EmailAddress:      "owner@example.com",
			TemporaryCode:     "op3rat0r",
			TemporaryPassword: "notTheMailedOne",
			Password:          "myNewPassword42",
		},
	}

	for _, attempt := range attempts {
		err := handler.Execute(ctx, attempt)
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, provision.TextCodeInvalidProof, richErr.TextCode)
	}

	individuals.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateAccountDeliveryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	applicants := &MockApplicants{}
	individuals := &MockIndividuals{}
	accounts := &MockAccounts{}
	templates := &MockTemplates{}
	notifier := &MockNotifier{}

	applicant, plain := pendingApplicant(t, "owner@example.com", "op3rat0r")

	runInTxPassthrough(t, repo)
	repo.On("CountUsedEmail", mock.Anything, mock.Anything, "owner@example.com").
		Return(0, nil).Once()
	repo.On("Applicants").Return(applicants)
	repo.On("Individuals").Return(individuals)
	repo.On("Accounts").Return(accounts)

	applicants.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(applicant, nil).Once()
	individuals.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&provision.Individual{ID: uuid.New()}, nil).Once()
	accounts.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&provision.Account{}, nil).Once()
	applicants.On("DeleteByEmailTx", mock.Anything, mock.Anything, "owner@example.com").
		Return(nil).Once()

	templates.On("GetByCode", mock.Anything, provision.TemplateCodeActivation).
		Return(activationTemplate(), nil).Once()
	notifier.On("Send", mock.Anything, mock.Anything).
		Return(errors.New("smtp unreachable")).Once()

	composer := provision.NewEmailComposer(templates)
	handler := provision.NewActivateAccountHandler(repo, composer, notifier, "noreply@example.com", testLogger{})

	err := handler.Execute(ctx, provision.ActivateAccountMessage{
		EmailAddress:      "owner@example.com",
		TemporaryCode:     "op3rat0r",
		TemporaryPassword: plain,
		Password:          "myNewPassword42",
	})

	// The account is in place; a lost courtesy mail does not undo it.
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}
