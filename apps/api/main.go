package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	"github.com/trezcool/shule/core/tuition"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	gethchain "github.com/trezcool/shule/storage/chain/geth"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up chain gateway
	gw, err := gethchain.Open(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up chain gateway: %v", err), err)
	}
	defer gw.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	chainID, err := gw.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("chain rpc unreachable: %v", err), err)
	}
	logger.Info(fmt.Sprintf("connected to chain %s at %s", chainID, conf.Chain.RPCURL))
	if (gw.Account() == common.Address{}) {
		logger.Warn("no signing key configured; chain writes will fail")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	accessSvc := access.NewService(gw, conf, logger)
	studentSvc := student.NewService(gw, mailSvc, conf, logger)
	tuitionSvc := tuition.NewService(gw, conf, logger)
	treasurySvc := treasury.NewService(gw, mailSvc, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	access.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// keep the treasury balance warm in the background
	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	go treasurySvc.NewBalanceReader().Poll(pollCtx)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			AccessSvc:   accessSvc,
			StudentSvc:  studentSvc,
			TuitionSvc:  tuitionSvc,
			TreasurySvc: treasurySvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
