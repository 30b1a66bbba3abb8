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

func TestUsecase_Login(t *testing.T) {
	t.Parallel()

	t.Run("IssuesTokenPair", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		user := &entity.User{ID: 7, Username: "alice", Password: f.bcryptOf(t, "s3cretpass"), Role: entity.RoleUser}

		f.throttle.On("LoginFailures", mock.Anything, "alice").Return(int64(2), nil)
		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(user, nil)
		f.db.On("CreateSession", mock.Anything, mock.MatchedBy(func(s entity.Session) bool {
			return s.UserID == 7 && s.UserAgent == "cli" && s.IPAddress == "10.0.0.2" &&
				s.ExpiresAt.Equal(testNow.Add(30*24*time.Hour))
		})).Return(nil)
		f.throttle.On("ResetLoginFailures", mock.Anything, "alice").Return(nil)

		out, err := f.uc.Login(context.Background(), LoginInput{
			Username: "Alice", Password: "s3cretpass", UserAgent: "cli", RemoteIP: "10.0.0.2",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, out.RefreshToken)
		assert.Equal(t, testNow.Add(time.Hour), out.AccessExpiresAt)

		clm, err := f.jwt.Verify(out.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, int64(7), clm.UserID)
		assert.Equal(t, "user", clm.Role)
		assert.Equal(t, int64(101), clm.SessionID)
	})

	t.Run("WrongPasswordCountsFailure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "modules:\n  identity:\n    login_lock_minutes: 5\n")
		user := &entity.User{ID: 7, Username: "alice", Password: f.bcryptOf(t, "s3cretpass")}

		f.throttle.On("LoginFailures", mock.Anything, "alice").Return(int64(0), nil)
		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(user, nil)
		f.throttle.On("AddLoginFailure", mock.Anything, "alice", 5*time.Minute).Return(int64(1), nil)

		_, err := f.uc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong-password"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("UnknownUserCountsFailure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.throttle.On("LoginFailures", mock.Anything, "ghost").Return(int64(0), nil)
		f.db.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, goerror.ErrNotFound)
		f.throttle.On("AddLoginFailure", mock.Anything, "ghost", defaultLoginLock).Return(int64(1), nil)

		_, err := f.uc.Login(context.Background(), LoginInput{Username: "ghost", Password: "whatever1"})
		assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))
	})

	t.Run("Throttled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "modules:\n  identity:\n    login_max_attempts: 3\n")

		f.throttle.On("LoginFailures", mock.Anything, "alice").Return(int64(3), nil)

		_, err := f.uc.Login(context.Background(), LoginInput{Username: "alice", Password: "s3cretpass"})
		assert.True(t, goerror.HasCode(err, goerror.CodeTooManyRequest))
	})

	t.Run("ThrottleOutageDoesNotBlock", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		user := &entity.User{ID: 7, Username: "alice", Password: f.bcryptOf(t, "s3cretpass"), Role: entity.RoleUser}

		f.throttle.On("LoginFailures", mock.Anything, "alice").Return(int64(0), errors.New("redis down"))
		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(user, nil)
		f.db.On("CreateSession", mock.Anything, mock.Anything).Return(nil)

		_, err := f.uc.Login(context.Background(), LoginInput{Username: "alice", Password: "s3cretpass"})
		assert.NoError(t, err)
	})

	t.Run("RepoError", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.throttle.On("LoginFailures", mock.Anything, "alice").Return(int64(0), nil)
		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(nil, errors.New("db down"))

		_, err := f.uc.Login(context.Background(), LoginInput{Username: "alice", Password: "s3cretpass"})
		assert.True(t, goerror.HasCode(err, goerror.CodeInternal))
	})
}
