package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	kpihandlers "github.com/op-tools/kpi-atlas/pkg/handlers/kpi"
	reporthandlers "github.com/op-tools/kpi-atlas/pkg/handlers/report"
	kpiatlasmiddleware "github.com/op-tools/kpi-atlas/pkg/server/middleware"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Uploader reporthandlers.Uploader
	Comparer reporthandlers.Comparer
	Narrator reporthandlers.Narrator
	Reports  reporthandlers.ReportSource
	KPIs     kpihandlers.KPIStore
	Goals    kpihandlers.GoalStore
}

type Config struct {
	Addr            string
	APIKey          string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	deps := config.Dependencies
	reportHandler := reporthandlers.NewHandler(deps.Uploader, deps.Comparer, deps.Narrator, deps.Reports)
	kpiHandler := kpihandlers.NewHandler(deps.KPIs, deps.Goals)

	router := chi.NewRouter()

	router.Use(kpiatlasmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(kpiatlasmiddleware.APIKey(config.APIKey))

		r.Post("/reports/upload", reportHandler.Upload)
		r.Get("/reports", reportHandler.ListReports)
		r.Get("/reports/{reportID}", reportHandler.GetReport)
		r.Post("/analyze", reportHandler.Analyze)

		r.Post("/kpis", kpiHandler.CreateKPI)
		r.Get("/kpis", kpiHandler.ListKPIs)
		r.Post("/goals", kpiHandler.CreateGoals)
		r.Get("/goals", kpiHandler.ListGoals)
	})

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

// Router exposes the configured mux, mainly for tests.
func (w *WebAPI) Router() http.Handler {
	return w.router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
