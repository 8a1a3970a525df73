package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/memberships/internal/config"
	"github.com/deppfellow/memberships/internal/database"
	"github.com/deppfellow/memberships/internal/handler"
	"github.com/deppfellow/memberships/internal/lib/email"
	"github.com/deppfellow/memberships/internal/logger"
	"github.com/deppfellow/memberships/internal/repository"
	"github.com/deppfellow/memberships/internal/router"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const DefaultContextTimeout = 30

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "memberships",
		Short:         "Association membership service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCommand(), migrateCommand())

	return root
}

// bootstrap loads the config and builds the loggers shared by every command.
func bootstrap() (*config.Config, *logger.LoggerService, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, zerolog.Logger{}, err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	return cfg, loggerService, log, nil
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loggerService, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer loggerService.Shutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), DefaultContextTimeout*time.Second)
			defer cancel()

			return database.Migrate(ctx, &log, cfg)
		},
	}
}

func serveCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loggerService, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer loggerService.Shutdown()

			if migrate || !cfg.IsLocal() {
				ctx, cancel := context.WithTimeout(cmd.Context(), DefaultContextTimeout*time.Second)
				err := database.Migrate(ctx, &log, cfg)
				cancel()
				if err != nil {
					log.Fatal().Err(err).Msg("failed to migrate database")
				}
			}

			srv, err := server.New(cfg, &log, loggerService)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to initialize server")
			}

			repos := repository.NewRepositories(srv)

			services, err := service.NewService(srv, repos)
			if err != nil {
				log.Fatal().Err(err).Msg("could not create services")
			}

			srv.Job.InitHandlers(email.NewClient(cfg, &log), repos.Members)
			if err := srv.Job.Start(); err != nil {
				log.Fatal().Err(err).Msg("failed to start background jobs")
			}

			handlers := handler.NewHandlers(srv, services)
			r, err := router.NewRouter(srv, handlers, services)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to build router")
			}

			srv.SetupHTTPServer(r)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("failed to start server")
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultContextTimeout*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Fatal().Err(err).Msg("server forced to shutdown")
			}

			log.Info().Msg("server exited properly")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving (always on outside local)")

	return cmd
}
