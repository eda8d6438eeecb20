package handler

import (
	"net/http"

	"github.com/buffapp/amazon-ads-api/internal/api/handler/router"
	"github.com/buffapp/amazon-ads-api/internal/usecases/authenticating"
	"github.com/buffapp/amazon-ads-api/internal/usecases/connecting"
	"github.com/buffapp/amazon-ads-api/internal/usecases/reporting"
	"github.com/buffapp/amazon-ads-api/pkg/middleware"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Authentication(service authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/login",
			Method:  http.MethodPost,
			Handler: Login(service),
		},
		{
			Path:    "/v1/register",
			Method:  http.MethodPost,
			Handler: CreateUser(service),
		},
		{
			Path:        "/v1/me",
			Method:      http.MethodGet,
			Handler:     GetMe(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func Connections(service connecting.Connector, authenticator authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/connections/authorize",
			Method:      http.MethodGet,
			Handler:     AuthorizeConnection(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:    "/v1/connections/callback",
			Method:  http.MethodGet,
			Handler: ConnectionCallback(service, authenticator),
		},
		{
			Path:        "/v1/connections",
			Method:      http.MethodGet,
			Handler:     ListConnections(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/connections/:id",
			Method:      http.MethodDelete,
			Handler:     DisconnectConnection(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func Reports(service reporting.ReportService) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/reports",
			Method:      http.MethodPost,
			Handler:     SubmitReport(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/reports/:id",
			Method:      http.MethodGet,
			Handler:     GetReport(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/reports/:id/artifact",
			Method:      http.MethodPost,
			Handler:     FetchReportArtifact(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/cron/:type/run",
			Method:      http.MethodPost,
			Handler:     RunCronJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/cron/status",
			Method:      http.MethodGet,
			Handler:     GetCronStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}
