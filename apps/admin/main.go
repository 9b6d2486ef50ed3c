package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
	emailsvc "github.com/vince-duran/TPLearn-sub006/services/email"
	logsvc "github.com/vince-duran/TPLearn-sub006/services/logger"
	notifysvc "github.com/vince-duran/TPLearn-sub006/services/notify"
	"github.com/vince-duran/TPLearn-sub006/storage/database"
	"github.com/vince-duran/TPLearn-sub006/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, svcLogger)
	}
	notifier := notifysvc.NewEmailNotifier(mailSvc, svcLogger, notifysvc.StaticDomainResolver("tplearn.ph"))

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, svcLogger)

	// start CLI
	cli := commandLine{
		db:         db,
		conf:       conf,
		billingSvc: billing.NewService(sqlxrepos.NewBillingRepository(db), notifier, svcLogger, validate, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
