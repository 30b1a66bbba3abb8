package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeSession(f *fixture, t *testing.T, token string) *entity.SessionUser {
	return &entity.SessionUser{
		Session: entity.Session{
			ID:        55,
			UserID:    7,
			TokenHash: f.hashOf(t, token),
			ExpiresAt: testNow.Add(time.Hour),
		},
		Username: "alice",
		Role:     entity.RoleUser,
	}
}

func TestUsecase_RefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("Rotates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "old")

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)
		f.db.On("RotateSession", mock.Anything, mock.MatchedBy(func(ro entity.RotateSession) bool {
			return ro.OldID == 55 && ro.UserID == 7 && ro.New.ID == 101 && ro.RevokedAt.Equal(testNow)
		})).Return(nil)

		out, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "old"})
		require.NoError(t, err)
		assert.NotEqual(t, "old", out.RefreshToken)

		clm, err := f.jwt.Verify(out.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", clm.Username)
		assert.Equal(t, int64(101), clm.SessionID)
	})

	t.Run("ReuseRevokesEverything", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "stolen")
		next := int64(56)
		su.RevokedAt = &testNow
		su.ReplacedBy = &next

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)
		f.db.On("RevokeAllSessions", mock.Anything, int64(7), testNow).Return(int64(2), nil)

		_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "stolen"})
		assert.True(t, goerror.HasCode(err, goerror.CodeForbidden))
	})

	t.Run("LoggedOut", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "old")
		su.RevokedAt = &testNow

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)

		_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "old"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("Expired", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "old")
		su.ExpiresAt = testNow

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)

		_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "old"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetSessionByTokenHash", mock.Anything, mock.Anything).Return(nil, goerror.ErrNotFound)

		_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "nope"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("LostRace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "old")

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)
		f.db.On("RotateSession", mock.Anything, mock.Anything).Return(goerror.ErrNotFound)

		_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "old"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})
}

func TestUsecase_Logout(t *testing.T) {
	t.Parallel()

	t.Run("RevokesSession", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "tok")

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)
		f.db.On("RevokeSession", mock.Anything, int64(55), testNow).Return(nil)

		assert.NoError(t, f.uc.Logout(context.Background(), LogoutInput{RefreshToken: "tok"}))
	})

	t.Run("UnknownTokenSucceeds", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetSessionByTokenHash", mock.Anything, mock.Anything).Return(nil, goerror.ErrNotFound)

		assert.NoError(t, f.uc.Logout(context.Background(), LogoutInput{RefreshToken: "tok"}))
	})

	t.Run("AlreadyRevokedSucceeds", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		su := activeSession(f, t, "tok")
		su.RevokedAt = &testNow

		f.db.On("GetSessionByTokenHash", mock.Anything, su.TokenHash).Return(su, nil)

		assert.NoError(t, f.uc.Logout(context.Background(), LogoutInput{RefreshToken: "tok"}))
	})

	t.Run("MissingToken", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		err := f.uc.Logout(context.Background(), LogoutInput{})
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidInput))
	})
}

func TestUsecase_PasswordChange(t *testing.T) {
	t.Parallel()

	t.Run("RevokesSessionsAndPublishes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		user := &entity.User{ID: 7, Username: "alice", Password: f.bcryptOf(t, "old-password")}

		f.db.On("GetUserByID", mock.Anything, int64(7)).Return(user, nil)
		f.db.On("ChangePassword", mock.Anything, int64(7), mock.MatchedBy(func(h string) bool {
			return f.bcrypt.Verify(h, "new-password")
		}), testNow).Return(int64(3), nil)
		f.msg.On("PublishPasswordChanged", mock.Anything, PasswordChangedEvent{
			UserID: 7, RevokedSessions: 3, ChangedAt: testNow,
		}).Return(nil)

		err := f.uc.PasswordChange(authCtx(7), PasswordChangeInput{CurrentPassword: "old-password", NewPassword: "new-password"})
		assert.NoError(t, err)
	})

	t.Run("WrongCurrent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		user := &entity.User{ID: 7, Password: f.bcryptOf(t, "old-password")}

		f.db.On("GetUserByID", mock.Anything, int64(7)).Return(user, nil)

		err := f.uc.PasswordChange(authCtx(7), PasswordChangeInput{CurrentPassword: "guess-1234", NewPassword: "new-password"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("SamePassword", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		err := f.uc.PasswordChange(authCtx(7), PasswordChangeInput{CurrentPassword: "same-password", NewPassword: "same-password"})
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidInput))
	})

	t.Run("Anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		err := f.uc.PasswordChange(context.Background(), PasswordChangeInput{CurrentPassword: "old-password", NewPassword: "new-password"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})
}

func TestUsecase_Profile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.db.On("GetUserByID", mock.Anything, int64(7)).
		Return(&entity.User{ID: 7, Username: "alice", Role: entity.RoleUser, CreatedAt: testNow}, nil).Once()
	f.db.On("GetUserByID", mock.Anything, int64(8)).Return(nil, errors.New("db down")).Once()

	out, err := f.uc.Profile(authCtx(7))
	require.NoError(t, err)
	assert.Equal(t, &ProfileOutput{ID: 7, Username: "alice", Role: "user", CreatedAt: testNow}, out)

	_, err = f.uc.Profile(authCtx(8))
	assert.True(t, goerror.HasCode(err, goerror.CodeInternal))

	_, err = f.uc.Profile(context.Background())
	assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
}
