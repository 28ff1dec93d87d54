package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	gethchain "github.com/trezcool/shule/storage/chain/geth"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// a keystore without a configured passphrase is unlocked interactively
	if conf.Chain.KeystorePath != "" && conf.Chain.KeystorePassphrase == "" {
		fmt.Print("Keystore passphrase:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		errAndDie(err)
		conf.Chain.KeystorePassphrase = string(pwd)
	}

	// set up chain gateway
	gw, err := gethchain.Open(conf, logger)
	errAndDie(err)
	defer gw.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	_, err = gw.Ping(pingCtx)
	cancel()
	errAndDie(err)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	access.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		conf:        conf,
		validate:    validate,
		accessSvc:   access.NewService(gw, conf, logger),
		studentSvc:  student.NewService(gw, mailSvc, conf, logger),
		treasurySvc: treasury.NewService(gw, mailSvc, conf, logger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
