package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	_localsActor = "actor"
	// _queryToken carries the token where headers cannot be set, e.g. a browser websocket.
	_queryToken = "access_token"
	_roleAdmin  = "admin"
)

var ErrUnauthorized = errors.New("unauthorized")

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Auth verifies HS256 bearer tokens and puts the caller's entity.Actor into
// the request locals. The subject claim is the participant id.
type Auth struct {
	secret []byte
	issuer string
	leeway time.Duration
	logger logger.Interface
}

func NewAuth(secret, issuer string, leeway time.Duration, l logger.Interface) *Auth {
	return &Auth{
		secret: []byte(secret),
		issuer: issuer,
		leeway: leeway,
		logger: l,
	}
}

// Actor parses and validates a raw token.
func (a *Auth) Actor(token string) (entity.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("Auth - Actor - jwt.ParseWithClaims: %w", errors.Join(ErrUnauthorized, err))
	}

	subject, err := c.GetSubject()
	if err != nil || subject == "" {
		return entity.Actor{}, fmt.Errorf("Auth - Actor - empty subject: %w", ErrUnauthorized)
	}
	if err := entity.CheckUserID(subject); err != nil {
		return entity.Actor{}, fmt.Errorf("Auth - Actor - entity.CheckUserID: %w", errors.Join(ErrUnauthorized, err))
	}

	return entity.Actor{ID: subject, Admin: c.Role == _roleAdmin}, nil
}

// Sign issues a token for actor. Used by tests and local tooling.
func (a *Auth) Sign(actor entity.Actor, ttl time.Duration) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	if actor.Admin {
		c.Role = _roleAdmin
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("Auth - Sign - SignedString: %w", err)
	}

	return s, nil
}

func (a *Auth) Handler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := bearer(ctx.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = ctx.Query(_queryToken)
		}
		if token == "" {
			return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		actor, err := a.Actor(token)
		if err != nil {
			a.logger.Debug(err, "Auth - Handler - a.Actor")

			return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		ctx.Locals(_localsActor, actor)

		return ctx.Next()
	}
}

// ActorFrom returns the actor stored by Handler.
func ActorFrom(ctx *fiber.Ctx) (entity.Actor, bool) {
	actor, ok := ctx.Locals(_localsActor).(entity.Actor)

	return actor, ok
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
