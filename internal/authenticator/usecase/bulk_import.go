package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/idempotency"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
)

const maxImportEntries = 1000

type BulkImportInput struct {
	IdempotencyKey string `validate:"omitempty,max=128"`
	Entries        []entity.BackupEntry
}

type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type BulkImportOutput struct {
	Success  int           `json:"success"`
	Failure  int           `json:"failure"`
	Errors   []ImportError `json:"errors"`
	Replayed bool          `json:"-"`
}

// BulkImport stores every valid entry and reports the invalid ones by index.
// With an idempotency key a repeated request returns the first result
// instead of importing twice.
func (s *Usecase) BulkImport(ctx context.Context, in BulkImportInput) (*BulkImportOutput, error) {
	ctx, span := s.startSpan(ctx, "BulkImport")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if len(in.Entries) == 0 {
		return nil, goerror.NewInvalidInput(nil, "entries", "entries must contain at least one item")
	}
	if len(in.Entries) > maxImportEntries {
		return nil, goerror.NewInvalidInput(nil, "entries", "entries must contain at most "+strconv.Itoa(maxImportEntries)+" items")
	}

	if in.IdempotencyKey == "" || s.idemp == nil {
		return s.importEntries(ctx, clm.UserID, "json", in.Entries)
	}

	key := "authenticator:import:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	raw, replayed, err := s.idemp.Exec(ctx, key, func(ctx context.Context) ([]byte, error) {
		out, err := s.importEntries(ctx, clm.UserID, "json", in.Entries)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "import already in progress", "user_id", clm.UserID, "key", in.IdempotencyKey)
		return nil, goerror.NewBusiness("an import with this idempotency key is in progress", goerror.CodeConflict)
	}
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to exec idempotent import", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	var out BulkImportOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.ErrorContext(ctx, "failed to decode stored import result", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}
	out.Replayed = replayed

	return &out, nil
}

// importEntries validates each entry on its own, stores the valid ones in a
// single transaction and publishes the outcome.
func (s *Usecase) importEntries(ctx context.Context, userID int64, source string, entries []entity.BackupEntry) (*BulkImportOutput, error) {
	out := &BulkImportOutput{Errors: []ImportError{}}
	rows := make([]entity.Authenticator, 0, len(entries))

	for i, e := range entries {
		in := CreateInput{
			Name:        truncateName(e.Name),
			Description: strings.TrimSpace(e.Description),
			Tags:        e.Tags,
			Secret:      e.Secret,
		}
		if err := s.validator.Validate(in); err != nil {
			out.Errors = append(out.Errors, ImportError{Index: i, Reason: reasonOf(err)})
			continue
		}

		a, err := s.newAuthenticator(userID, in)
		if err != nil {
			out.Errors = append(out.Errors, ImportError{Index: i, Reason: reasonOf(err)})
			continue
		}
		rows = append(rows, *a)
	}

	if len(rows) > 0 {
		if err := s.repoDB.CreateMany(ctx, rows); err != nil {
			slog.ErrorContext(ctx, "failed to repo create authenticators", "user_id", userID, "count", len(rows), "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	out.Success = len(rows)
	out.Failure = len(out.Errors)

	s.publishImported(ctx, userID, source, out.Success, out.Failure)

	return out, nil
}

func reasonOf(err error) string {
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		msgs := lo.Values(verr.Values())
		slices.Sort(msgs)
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
