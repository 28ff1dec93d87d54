package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	"github.com/trezcool/shule/core/tuition"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		AccessSvc   *access.Service
		StudentSvc  *student.Service
		TuitionSvc  *tuition.Service
		TreasurySvc *treasury.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerAuthAPI(v1, jwt, conf, s.deps.AccessSvc, s.deps.Validate)
	registerRolesAPI(v1, jwt, s.deps.AccessSvc, s.deps.Validate)
	registerTeacherAPI(v1, jwt, s.deps.StudentSvc, s.deps.TuitionSvc, s.deps.TreasurySvc, s.deps.Validate)
	registerStudentAPI(v1, jwt, s.deps.AccessSvc, s.deps.StudentSvc, s.deps.TuitionSvc)
	registerAdminAPI(v1, jwt, s.deps.AccessSvc, s.deps.StudentSvc, s.deps.TuitionSvc, s.deps.TreasurySvc, s.deps.Validate)
}

// Start runs the server until it fails or is shut down. Failures land on
// Errors(); interrupt signals land on ShutdownSignal().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error             { return s.errs }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// signalShutdown requests a graceful stop, as if an interrupt had arrived.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
