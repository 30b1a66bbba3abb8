package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/storage"
)

const (
	defaultBackupKeep      = 7
	defaultBackupURLExpiry = 15 * time.Minute
)

var errStorageDisabled = goerror.NewBusiness("backup storage is not configured", goerror.CodeInvalidInput)

type BulkExportInput struct {
	Upload bool
}

type BulkExportOutput struct {
	Filename    string
	ContentType string
	Body        []byte
	Count       int

	// Set only for uploads.
	ObjectKey string
	URL       string
	ExpiresAt time.Time
}

// BulkExport renders every entry of the caller as a backup file. With Upload
// the file goes to object storage and a time limited link is returned
// instead of the body.
func (s *Usecase) BulkExport(ctx context.Context, in BulkExportInput) (*BulkExportOutput, error) {
	ctx, span := s.startSpan(ctx, "BulkExport")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if in.Upload && s.storage == nil {
		return nil, errStorageDisabled
	}

	items, err := s.repoDB.ListAll(ctx, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list all authenticators", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	entries := make([]entity.BackupEntry, 0, len(items))
	for i := range items {
		secret, err := s.open(&items[i])
		if err != nil {
			slog.ErrorContext(ctx, "failed to open authenticator secret", "id", items[i].ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		entries = append(entries, entity.BackupEntry{
			Name:        items[i].Name,
			Secret:      secret,
			Description: items[i].Description,
			Tags:        items[i].Tags,
		})
	}

	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal backup", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	out := &BulkExportOutput{
		Filename:    entity.BackupFilename(now.UTC().Format(time.DateOnly)),
		ContentType: entity.BackupContentType,
		Body:        body,
		Count:       len(entries),
	}

	if in.Upload {
		if err := s.upload(ctx, clm.UserID, out); err != nil {
			return nil, err
		}
		out.Body = nil
	}

	if err := s.repoMessaging.PublishExported(ctx, ExportedEvent{
		UserID:     clm.UserID,
		Count:      out.Count,
		Uploaded:   in.Upload,
		ObjectKey:  out.ObjectKey,
		ExportedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish authenticator exported", "user_id", clm.UserID, "error", err)
	}

	return out, nil
}

func (s *Usecase) upload(ctx context.Context, userID int64, out *BulkExportOutput) error {
	owner := strconv.FormatInt(userID, 10)
	key := entity.BackupObjectPrefix(owner) + out.Filename

	_, err := s.storage.Put(ctx, key, out.Body, storage.PutOptions{
		ContentType: out.ContentType,
		Filename:    out.Filename,
		Metadata:    map[string]string{"user-id": owner, "count": strconv.Itoa(out.Count)},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to upload backup", "user_id", userID, "key", key, "error", err)
		return goerror.NewServer(err)
	}

	expiry := s.cfg.GetMinute("modules.authenticator.backup_url_expiry_minutes")
	if expiry <= 0 {
		expiry = defaultBackupURLExpiry
	}

	url, err := s.storage.SignedURL(ctx, key, expiry)
	if err != nil {
		slog.ErrorContext(ctx, "failed to sign backup url", "user_id", userID, "key", key, "error", err)
		return goerror.NewServer(err)
	}

	out.ObjectKey = key
	out.URL = url
	out.ExpiresAt = s.clock.Now().Add(expiry)

	s.pruneBackups(ctx, owner)

	return nil
}

// pruneBackups keeps the newest backups of a user and deletes the rest.
// Failures are logged only, an upload never fails because of pruning.
func (s *Usecase) pruneBackups(ctx context.Context, owner string) {
	keep := s.cfg.GetInt("modules.authenticator.backup_keep")
	if keep <= 0 {
		keep = defaultBackupKeep
	}

	objs, err := s.backups(ctx, owner)
	if err != nil {
		slog.WarnContext(ctx, "failed to list backups for pruning", "user_id", owner, "error", err)
		return
	}

	for len(objs) > keep {
		// oldest first, file names carry the date
		if err := s.storage.Delete(ctx, objs[0].Key); err != nil {
			slog.WarnContext(ctx, "failed to delete old backup", "key", objs[0].Key, "error", err)
		}
		objs = objs[1:]
	}
}

func (s *Usecase) backups(ctx context.Context, owner string) ([]storage.Object, error) {
	objs, err := s.storage.List(ctx, entity.BackupObjectPrefix(owner))
	if err != nil {
		return nil, err
	}

	objs = slices.DeleteFunc(objs, func(o storage.Object) bool {
		return !entity.IsBackupObject(owner, o.Key)
	})
	slices.SortFunc(objs, func(a, b storage.Object) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})

	return objs, nil
}
