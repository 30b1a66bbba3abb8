package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/storage"
)

const maxBackupBytes = 5 << 20

type Backup struct {
	Filename  string
	Size      int64
	UpdatedAt time.Time
}

// ListBackups returns the uploaded backups of the caller, newest first.
func (s *Usecase) ListBackups(ctx context.Context) ([]Backup, error) {
	ctx, span := s.startSpan(ctx, "ListBackups")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, errStorageDisabled
	}

	objs, err := s.backups(ctx, strconv.FormatInt(clm.UserID, 10))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list backups", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}
	slices.Reverse(objs)

	out := make([]Backup, 0, len(objs))
	for _, o := range objs {
		out = append(out, Backup{Filename: path.Base(o.Key), Size: o.Size, UpdatedAt: o.UpdatedAt})
	}

	return out, nil
}

type RestoreBackupInput struct {
	Filename string `validate:"required,max=64"`
}

// RestoreBackup imports an uploaded backup file. Entries are added next to
// the existing ones, nothing is replaced.
func (s *Usecase) RestoreBackup(ctx context.Context, in RestoreBackupInput) (*BulkImportOutput, error) {
	ctx, span := s.startSpan(ctx, "RestoreBackup")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, errStorageDisabled
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	owner := strconv.FormatInt(clm.UserID, 10)
	key := entity.BackupObjectPrefix(owner) + in.Filename
	if !entity.IsBackupObject(owner, key) {
		return nil, goerror.NewInvalidInput(nil, "filename", "filename is not a backup file")
	}

	body, _, err := s.storage.Get(ctx, key, maxBackupBytes)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "backup not found", "user_id", clm.UserID, "key", key)
		return nil, goerror.NewBusiness("backup not found", goerror.CodeNotFound)
	}
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, goerror.NewBusiness("backup file is too large", goerror.CodeInvalidInput)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get backup", "user_id", clm.UserID, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	var entries []entity.BackupEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		slog.WarnContext(ctx, "failed to decode backup", "user_id", clm.UserID, "key", key, "error", err)
		return nil, goerror.NewBusiness("backup file is not valid", goerror.CodeInvalidFormat)
	}
	if len(entries) == 0 {
		return &BulkImportOutput{Errors: []ImportError{}}, nil
	}
	if len(entries) > maxImportEntries {
		slog.WarnContext(ctx, "backup has too many entries", "user_id", clm.UserID, "key", key, "entries", len(entries))
		return nil, goerror.NewBusiness("backup must contain at most "+strconv.Itoa(maxImportEntries)+" entries", goerror.CodeInvalidInput)
	}

	return s.importEntries(ctx, clm.UserID, "backup", entries)
}
