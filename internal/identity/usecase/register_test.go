package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUsecase_Register(t *testing.T) {
	t.Parallel()

	t.Run("CreatesLowercasedUser", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetUserByUsername", mock.Anything, "alice_01").Return(nil, goerror.ErrNotFound)
		f.db.On("CreateUser", mock.Anything, mock.MatchedBy(func(u entity.User) bool {
			return u.ID == 101 && u.Username == "alice_01" && u.Role == entity.RoleUser &&
				f.bcrypt.Verify(u.Password, "s3cretpass")
		})).Return(nil)
		f.msg.On("PublishUserRegistered", mock.Anything, UserRegisteredEvent{
			UserID: 101, Username: "alice_01", RegisteredAt: testNow,
		}).Return(nil)

		out, err := f.uc.Register(context.Background(), RegisterInput{Username: "  Alice_01 ", Password: "s3cretpass"})
		require.NoError(t, err)
		assert.Equal(t, int64(101), out.UserID)
		assert.Equal(t, "alice_01", out.Username)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(&entity.User{ID: 1}, nil)

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "alice", Password: "s3cretpass"})
		assert.True(t, goerror.HasCode(err, goerror.CodeConflict))
	})

	t.Run("ConflictOnInsertRace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(nil, goerror.ErrNotFound)
		f.db.On("CreateUser", mock.Anything, mock.Anything).Return(goerror.ErrConflict)

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "alice", Password: "s3cretpass"})
		assert.True(t, goerror.HasCode(err, goerror.CodeConflict))
	})

	t.Run("InvalidInput", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "al", Password: "short"})
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidInput))
	})

	t.Run("PublishFailureIsNotFatal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		f.db.On("GetUserByUsername", mock.Anything, "alice").Return(nil, goerror.ErrNotFound)
		f.db.On("CreateUser", mock.Anything, mock.Anything).Return(nil)
		f.msg.On("PublishUserRegistered", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "alice", Password: "s3cretpass"})
		assert.NoError(t, err)
	})

	t.Run("RecaptchaRequired", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "modules:\n  identity:\n    recaptcha:\n      enabled: true\n")

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "alice", Password: "s3cretpass"})
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidInput))
	})

	t.Run("RecaptchaRejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "modules:\n  identity:\n    recaptcha:\n      enabled: true\n")

		f.recaptcha.On("Verify", mock.Anything, "bad", "10.0.0.1").Return(false, nil)

		_, err := f.uc.Register(context.Background(), RegisterInput{
			Username: "alice", Password: "s3cretpass", RecaptchaToken: "bad", RemoteIP: "10.0.0.1",
		})
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidInput))
	})

	t.Run("RecaptchaUnavailable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "modules:\n  identity:\n    recaptcha:\n      enabled: true\n")

		f.recaptcha.On("Verify", mock.Anything, "tok", "").Return(false, errors.New("timeout"))

		_, err := f.uc.Register(context.Background(), RegisterInput{Username: "alice", Password: "s3cretpass", RecaptchaToken: "tok"})
		assert.True(t, goerror.HasCode(err, goerror.CodeInternal))
	})
}
