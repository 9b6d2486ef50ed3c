package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
	notifysvc "github.com/vince-duran/TPLearn-sub006/services/notify"
	inmemdb "github.com/vince-duran/TPLearn-sub006/storage/database/inmem"
	testutil "github.com/vince-duran/TPLearn-sub006/tests"
)

func setup(t *testing.T) (*commandLine, billing.Repository) {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "TPLearn",
		SecretKey: "test-secret-key",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Billing:   core.BillingConfig{LockTimeout: time.Second},
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)

	repo := inmemdb.NewBillingRepository(inmemdb.NewDB())
	svc := billing.NewService(repo, new(notifysvc.Recorder), testutil.NewLogger(t), validate, conf)

	return &commandLine{
		conf:       conf,
		billingSvc: svc,
	}, repo
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "enrollment_audit", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_sweep(t *testing.T) {
	cli, repo := setup(t)

	overdueFrom := time.Now().UTC().AddDate(0, 0, -20)
	enr, _ := billing.CreateTestEnrollment(t, repo, "std1", "prg1", 100, 3, billing.EnrollmentActive, overdueFrom)

	t.Run("invalid date", func(t *testing.T) {
		err := cli.run([]string{"admin", "sweep", "-date", "20-06-2021"})
		if err == nil {
			t.Fatal("cli.run() expected an error, got nil")
		}
	})

	t.Run("sweeps as of today", func(t *testing.T) {
		if err := cli.run([]string{"admin", "sweep"}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		got, err := repo.GetEnrollment(context.Background(), enr.ID)
		if err != nil {
			t.Fatalf("GetEnrollment() failed: %v", err)
		}
		if got.Status != billing.EnrollmentPaused {
			t.Errorf("Status = %s, want %s", got.Status, billing.EnrollmentPaused)
		}
	})

	t.Run("explicit date before the schedule pauses nothing", func(t *testing.T) {
		cli, repo := setup(t)
		enr, _ := billing.CreateTestEnrollment(t, repo, "std1", "prg1", 100, 3, billing.EnrollmentActive, overdueFrom)

		if err := cli.run([]string{"admin", "sweep", "-date", overdueFrom.Format("2006-01-02")}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		got, _ := repo.GetEnrollment(context.Background(), enr.ID)
		if got.Status != billing.EnrollmentActive {
			t.Errorf("Status = %s, want %s", got.Status, billing.EnrollmentActive)
		}
	})
}

func Test_commandLine_mintToken(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no validator", args: []string{"minttoken"}, wantErr: errHelp},
		{name: "validator only", args: []string{"minttoken", "-validator", "val1"}},
		{name: "admin token", args: []string{"minttoken", "-validator", "val1", "-name", "Val One", "-admin"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
