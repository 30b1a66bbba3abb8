package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/idempotency"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/secretbox"
	"github.com/shandysiswandi/twofa/internal/pkg/storage"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxNameRunes  = 32
	defaultIssuer = "2FA Authenticator"
)

type ImportedEvent struct {
	UserID     int64
	Source     string
	Success    int
	Failure    int
	ImportedAt time.Time
}

type ExportedEvent struct {
	UserID     int64
	Count      int
	Uploaded   bool
	ObjectKey  string
	ExportedAt time.Time
}

type repoMessaging interface {
	PublishImported(ctx context.Context, msg ImportedEvent) error
	PublishExported(ctx context.Context, msg ExportedEvent) error
}

type repoDB interface {
	Get(ctx context.Context, id, userID int64) (*entity.Authenticator, error)
	List(ctx context.Context, filter entity.ListFilter) ([]entity.Authenticator, int64, error)
	ListAll(ctx context.Context, userID int64) ([]entity.Authenticator, error)

	Create(ctx context.Context, a entity.Authenticator) error
	CreateMany(ctx context.Context, as []entity.Authenticator) error
	Update(ctx context.Context, p entity.Patch) error
	Delete(ctx context.Context, id, userID int64) error
}

type sealer interface {
	Seal(plaintext []byte, scope secretbox.Scope) ([]byte, error)
	Open(ciphertext []byte, scope secretbox.Scope) ([]byte, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	storage       storage.Store
	box           sealer
	engine        *otp.Engine
	validator     validator.Validator
	cfg           config.Config
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	// Idempotency and Storage are optional.
	Idempotency idempotency.Idempotency
	Storage     storage.Store
	Box         sealer
	Engine      *otp.Engine
	Validator   validator.Validator
	Config      config.Config
	UID         uid.NumberID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	engine := dep.Engine
	if engine == nil {
		engine = otp.NewEngine(otp.DefaultPeriod, 0)
	}

	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		storage:       dep.Storage,
		box:           dep.Box,
		engine:        engine,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authenticator.usecase").Start(ctx, name)
}

func (s *Usecase) issuer() string {
	if v := strings.TrimSpace(s.cfg.GetString("modules.authenticator.issuer")); v != "" {
		return v
	}
	return defaultIssuer
}

func (s *Usecase) countdown() *countdown.Driver {
	return countdown.New(s.engine, countdown.WithClock(s.clock))
}

func authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

func scope(userID, id int64) secretbox.Scope {
	return secretbox.Scope{OwnerID: userID, RecordID: id, Purpose: secretbox.PurposeAuthenticatorSecret}
}

func (s *Usecase) seal(userID, id int64, secret string) ([]byte, error) {
	return s.box.Seal([]byte(secret), scope(userID, id))
}

func (s *Usecase) open(a *entity.Authenticator) (string, error) {
	plain, err := s.box.Open(a.Secret, scope(a.UserID, a.ID))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// get loads an entry owned by userID and maps a miss to a business error.
func (s *Usecase) get(ctx context.Context, id, userID int64) (*entity.Authenticator, error) {
	a, err := s.repoDB.Get(ctx, id, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "authenticator not found", "id", id, "user_id", userID)
		return nil, goerror.NewBusiness("authenticator not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get authenticator", "id", id, "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return a, nil
}

// normalizeTags trims, lower-cases and de-duplicates tags, dropping blanks.
func normalizeTags(tags []string) []string {
	out := lo.Uniq(lo.FilterMap(tags, func(t string, _ int) (string, bool) {
		t = strings.ToLower(strings.TrimSpace(t))
		return t, t != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}

// truncateName keeps at most 32 runes so imported labels always fit.
func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxNameRunes {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:maxNameRunes]))
}

// Item is an entry as returned to clients, without its secret.
type Item struct {
	ID          int64
	Name        string
	Description string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func toItem(a entity.Authenticator) Item {
	return Item{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Tags:        a.Tags,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
