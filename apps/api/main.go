package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	pgrepos "github.com/trezcool/darasa/storage/database/postgres"
)

func main() {
	conf := core.Conf

	// set up logger
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	gradeCfg, err := grading.NewConfig(conf.Grading)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading grading config: %v", err), err)
	}

	personSvc := identity.NewService(conf, pgrepos.NewPersonRepository(db), mailSvc)
	gradeSvc := grading.NewService(gradeCfg, pgrepos.NewGradingRepository(db))
	schoolSvc := school.NewService(db, pgrepos.NewSchoolRepository(db), personSvc, gradeSvc)
	attendanceSvc := attendance.NewService(db, pgrepos.NewAttendanceRepository(db), schoolSvc)
	gradeSvc.BindSources(schoolSvc, attendanceSvc, schoolSvc)
	reportSvc := report.NewService(schoolSvc, attendanceSvc, gradeSvc, personSvc)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(&echoapi.Options{
		Addr:          conf.Server.Address(),
		Logger:        logger,
		PersonSvc:     personSvc,
		SchoolSvc:     schoolSvc,
		AttendanceSvc: attendanceSvc,
		GradeSvc:      gradeSvc,
		ReportSvc:     reportSvc,
	})
	server.Start()

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB.DB); err != nil {
		return nil, err
	}
	return db, nil
}
