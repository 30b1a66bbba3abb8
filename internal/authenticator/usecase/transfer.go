package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/qrcode"
)

type ExportURIOutput struct {
	ID   int64
	Name string
	URI  string
}

func (s *Usecase) ExportURI(ctx context.Context, id int64) (*ExportURIOutput, error) {
	ctx, span := s.startSpan(ctx, "ExportURI")
	defer span.End()

	uri, name, err := s.uri(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExportURIOutput{ID: id, Name: name, URI: uri}, nil
}

type ExportQROutput struct {
	Name string
	PNG  []byte
}

func (s *Usecase) ExportQR(ctx context.Context, id int64) (*ExportQROutput, error) {
	ctx, span := s.startSpan(ctx, "ExportQR")
	defer span.End()

	uri, name, err := s.uri(ctx, id)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.PNG(uri, s.cfg.GetInt("modules.authenticator.qr_size"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ExportQROutput{Name: name, PNG: png}, nil
}

func (s *Usecase) uri(ctx context.Context, id int64) (uri, name string, err error) {
	clm, err := authenticated(ctx)
	if err != nil {
		return "", "", err
	}

	a, err := s.get(ctx, id, clm.UserID)
	if err != nil {
		return "", "", err
	}

	secret, err := s.open(a)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open authenticator secret", "id", id, "error", err)
		return "", "", goerror.NewServer(err)
	}

	uri, err = otp.BuildURI(otp.Key{Issuer: s.issuer(), Account: a.Name, Secret: secret})
	if err != nil {
		slog.WarnContext(ctx, "failed to build otpauth uri", "id", id, "error", err)
		return "", "", goerror.NewBusiness("stored secret is not valid base32", goerror.CodeInvalidFormat)
	}

	return uri, a.Name, nil
}

type ImportURIInput struct {
	URI         string   `validate:"required,max=2048"`
	Description string   `validate:"max=256"`
	Tags        []string `validate:"max=10,dive,tag"`
}

// ImportURI stores the account carried by an otpauth URI. The entry is named
// after the issuer and account, cut to fit the name limit.
func (s *Usecase) ImportURI(ctx context.Context, in ImportURIInput) (*Item, error) {
	ctx, span := s.startSpan(ctx, "ImportURI")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key, err := otp.ParseURI(in.URI)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "uri", uriReason(err))
	}

	create := CreateInput{
		Name:        truncateName(key.DisplayName()),
		Description: in.Description,
		Tags:        in.Tags,
		Secret:      key.Secret,
	}
	if err := s.validator.Validate(create); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	a, err := s.newAuthenticator(clm.UserID, create)
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal authenticator secret", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.Create(ctx, *a); err != nil {
		slog.ErrorContext(ctx, "failed to repo create authenticator", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.publishImported(ctx, clm.UserID, "uri", 1, 0)

	item := toItem(*a)
	return &item, nil
}

func uriReason(err error) string {
	var uriErr *otp.InvalidURIError
	if errors.As(err, &uriErr) {
		return uriErr.Reason
	}
	var secretErr *otp.InvalidSecretError
	if errors.As(err, &secretErr) {
		return secretErr.Reason
	}
	return err.Error()
}

type GenerateSecretInput struct {
	Account string `validate:"required,max=32"`
}

type GenerateSecretOutput struct {
	Secret string
	URI    string
	QR     string
}

// GenerateSecret returns a fresh secret and its enrolment URI. Nothing is
// stored.
func (s *Usecase) GenerateSecret(ctx context.Context, in GenerateSecretInput) (*GenerateSecretOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateSecret")
	defer span.End()

	if _, err := authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key, err := otp.GenerateSecret(s.issuer(), in.Account)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	uri, err := otp.BuildURI(key)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build otpauth uri", "error", err)
		return nil, goerror.NewServer(err)
	}

	qr, err := qrcode.DataURI(uri, s.cfg.GetInt("modules.authenticator.qr_size"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &GenerateSecretOutput{Secret: key.Secret, URI: uri, QR: qr}, nil
}
