package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
)

func TestUpdateEmail(t *testing.T) {
	repo := newFakeAccountRepo()
	identity := NewIdentityStore(repo, discardLogger())
	editor := NewProfileEditor(repo, discardLogger())
	ctx := context.Background()

	owner, err := identity.Reconcile(ctx, model.ProviderIdentity{GitHubID: 1, Login: "owner", Email: strPtr("old@example.com")})
	require.NoError(t, err)
	other, err := identity.Reconcile(ctx, model.ProviderIdentity{GitHubID: 2, Login: "other"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		requesting  string
		target      string
		email       *string
		wantErr     error
		wantMessage string
	}{
		{
			name:        "other account is forbidden",
			requesting:  other.ID,
			target:      owner.ID,
			email:       strPtr("evil@example.com"),
			wantErr:     apperror.ErrForbidden,
			wantMessage: "current user does not match requested user",
		},
		{
			name:        "forbidden wins over empty email",
			requesting:  other.ID,
			target:      owner.ID,
			email:       strPtr(""),
			wantErr:     apperror.ErrForbidden,
			wantMessage: "current user does not match requested user",
		},
		{
			name:        "empty email",
			requesting:  owner.ID,
			target:      owner.ID,
			email:       strPtr(""),
			wantErr:     apperror.ErrValidation,
			wantMessage: "empty email rejected",
		},
		{
			name:        "null email",
			requesting:  owner.ID,
			target:      owner.ID,
			email:       nil,
			wantErr:     apperror.ErrValidation,
			wantMessage: "empty email rejected",
		},
		{
			name:        "malformed email",
			requesting:  owner.ID,
			target:      owner.ID,
			email:       strPtr("not-an-email"),
			wantErr:     apperror.ErrValidation,
			wantMessage: "invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := editor.UpdateEmail(ctx, tt.requesting, tt.target, tt.email)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
			assert.Contains(t, err.Error(), tt.wantMessage)

			unchanged, err := repo.GetByID(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, "old@example.com", *unchanged.Email)
		})
	}

	t.Run("own account succeeds", func(t *testing.T) {
		updated, err := editor.UpdateEmail(ctx, owner.ID, owner.ID, strPtr("new@example.com"))
		require.NoError(t, err)
		require.NotNil(t, updated.Email)
		assert.Equal(t, "new@example.com", *updated.Email)
	})
}

func TestUpdateEmail_NotLoggedIn(t *testing.T) {
	editor := NewProfileEditor(newFakeAccountRepo(), discardLogger())

	_, err := editor.UpdateEmail(context.Background(), "", "", strPtr("a@b.co"))
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestUpdateEmail_UnknownAccount(t *testing.T) {
	editor := NewProfileEditor(newFakeAccountRepo(), discardLogger())

	_, err := editor.UpdateEmail(context.Background(), "ghost", "ghost", strPtr("a@b.co"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
