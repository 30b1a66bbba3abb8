package identity

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/twofa/internal/identity/inbound"
	"github.com/shandysiswandi/twofa/internal/identity/outbound/cache"
	"github.com/shandysiswandi/twofa/internal/identity/outbound/db"
	"github.com/shandysiswandi/twofa/internal/identity/outbound/mq"
	"github.com/shandysiswandi/twofa/internal/identity/outbound/recaptcha"
	"github.com/shandysiswandi/twofa/internal/identity/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  redis.UniversalClient      `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Publisher  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Token      uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Publisher, dep.UUID, dep.Instrument),
		RepoThrottle:  cache.NewThrottle(dep.CacheConn, dep.Instrument),
		RepoRecaptcha: recaptcha.New(recaptcha.Config{
			Secret:    dep.Config.GetString("modules.identity.recaptcha.secret"),
			VerifyURL: dep.Config.GetString("modules.identity.recaptcha.verify_url"),
			MinScore:  dep.Config.GetFloat64("modules.identity.recaptcha.min_score"),
			Timeout:   dep.Config.GetSecond("modules.identity.recaptcha.timeout_seconds"),
		}, dep.Instrument),
		Validator:  dep.Validator,
		Config:     dep.Config,
		HMAC:       dep.HMAC,
		Bcrypt:     dep.Bcrypt,
		UID:        dep.UID,
		Token:      dep.Token,
		Clock:      dep.Clock,
		JWT:        dep.JWT,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
