package echoapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
)

// accountTokenKey is the echo.Context key the JWT middleware stores the parsed token under.
const accountTokenKey = "accountToken"

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    accountTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Subject carries the wallet address; role flags are resolved from the
// contract at token issue time.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

func NewClaims(conf *core.Config, profile access.Profile, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   profile.Address,
			Audience:  "School",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		IsStudent:    profile.IsStudent,
		IsTeacher:    profile.IsTeacher,
		IsAdmin:      profile.IsAdmin,
		Roles:        profile.HeldRoleNames(),
	}
	return claims
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(accountTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextAccount returns the authenticated wallet address.
func contextAccount(ctx echo.Context) (common.Address, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(claims.Subject), nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

func refreshToken(ctx echo.Context, conf *core.Config, svc *access.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// roles may have moved on chain since the token was issued
	profile, err := svc.ProfileOf(ctx.Request().Context(), common.HexToAddress(claims.Subject))
	if err != nil {
		return "", errors.Wrap(err, "resolving account profile")
	}

	newClaims := NewClaims(conf, profile, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}

type authApi struct {
	conf     *core.Config
	svc      *access.Service
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc *access.Service,
	validate *validator.Validate,
) {
	api := authApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/challenge` & `/login`
	ag.POST("/challenge", api.challenge)
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) challenge(ctx echo.Context) error {
	var data ChallengeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChallengeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	challenge, err := access.MakeChallenge(api.conf, common.HexToAddress(data.Address))
	if err != nil {
		return errors.Wrap(err, "making login challenge")
	}
	return ctx.JSON(http.StatusOK, ChallengeResponse{Challenge: challenge})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	addr := common.HexToAddress(data.Address)
	if err := access.VerifyChallenge(api.conf, addr, data.Challenge); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "challenge", Error: err.Error()})
	}

	sig, err := hexutil.Decode(data.Signature)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "signature", Error: "invalid hex encoding"})
	}
	if err = access.VerifySignature(addr, data.Challenge, sig); err != nil {
		return errAuthenticationFailed
	}

	profile, err := api.svc.ProfileOf(ctx.Request().Context(), addr)
	if err != nil {
		return errors.Wrap(err, "resolving account profile")
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, profile))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	ChallengeRequest struct {
		Address string `json:"address" validate:"required,eth_addr"`
	}

	ChallengeResponse struct {
		Challenge string `json:"challenge"`
	}

	LoginRequest struct {
		Address   string `json:"address,omitempty" validate:"required,eth_addr"`
		Challenge string `json:"challenge,omitempty" validate:"required"`
		Signature string `json:"signature,omitempty" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (cr *ChallengeRequest) Validate(validate *validator.Validate) error {
	cr.Address = core.CleanString(cr.Address, true) // eth_addr rejects unchecksummed mixed case
	return validate.Struct(cr)
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Address = core.CleanString(lr.Address, true)
	lr.Challenge = core.CleanString(lr.Challenge)
	lr.Signature = core.CleanString(lr.Signature)
	return validate.Struct(lr)
}
