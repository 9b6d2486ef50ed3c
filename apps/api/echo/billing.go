package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

type billingApi struct {
	svc *billing.Service
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := billingApi{svc: deps.BillingSvc}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll, adminMiddleware())
	eg.POST("/:id/schedule", api.createSchedule, adminMiddleware())
	eg.GET("/:id/obligations", api.ledger)

	og := g.Group("/obligations", jwt)
	og.POST("/:id/proof", api.submitProof)
	og.POST("/:id/validate", api.validate, adminMiddleware())

	g.POST("/sweep", api.sweep, jwt, adminMiddleware())
}

// Handlers

func (api *billingApi) enroll(ctx echo.Context) error {
	var data billing.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	enr, obs, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}

	return ctx.JSON(http.StatusCreated, EnrollmentResponse{Enrollment: enr, Obligations: obs})
}

func (api *billingApi) createSchedule(ctx echo.Context) error {
	var data billing.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	data.EnrollmentID = ctx.Param("id")

	obs, err := api.svc.CreateObligationSchedule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating obligation schedule")
	}

	return ctx.JSON(http.StatusCreated, ScheduleResponse{Obligations: obs})
}

func (api *billingApi) ledger(ctx echo.Context) error {
	ledger, err := api.svc.Ledger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching payment ledger")
	}
	return ctx.JSON(http.StatusOK, ledger)
}

func (api *billingApi) submitProof(ctx echo.Context) error {
	var data billing.ProofSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProofSubmission")
	}
	data.ObligationID = ctx.Param("id")

	res, err := api.svc.SubmitProof(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting payment proof")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *billingApi) validate(ctx echo.Context) error {
	var data billing.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	data.ObligationID = ctx.Param("id")

	// the decision is attributed to the authenticated validator
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.ValidatorID = claims.Subject

	res, err := api.svc.Validate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "validating payment")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *billingApi) sweep(ctx echo.Context) error {
	res, err := api.svc.SweepOverdue(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "sweeping overdue enrollments")
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	EnrollmentResponse struct {
		Enrollment  billing.Enrollment          `json:"enrollment"`
		Obligations []billing.PaymentObligation `json:"obligations"`
	}

	ScheduleResponse struct {
		Obligations []billing.PaymentObligation `json:"obligations"`
	}
)
