package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"difal-service/internal/api"
	"difal-service/internal/api/middleware"
	"difal-service/internal/api/responses"
	"difal-service/internal/config"
	"difal-service/internal/core/benefits"
	"difal-service/internal/core/difal"
	"difal-service/internal/core/rates"
	"difal-service/internal/logger"
	"difal-service/internal/metrics"
)

type serveOpts struct {
	*rootOpts
	port string
}

func serve(o *rootOpts) *serveOpts {
	return &serveOpts{rootOpts: o}
}

func (s *serveOpts) cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Inicia a API HTTP de cálculo de DIFAL",
		Args:  cobra.NoArgs,
		RunE:  s.runE,
	}
	cmd.Flags().StringVar(&s.port, "port", "", "Porta HTTP (sobrepõe DIFAL_SERVER_PORT)")
	return cmd
}

func (s *serveOpts) runE(cmd *cobra.Command, _ []string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if s.port != "" {
		cfg.Server.Port = s.port
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() // nolint:errcheck
	responses.InitLogger(log)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfops, err := cfg.Difal.CFOPTable()
	if err != nil {
		return err
	}

	store, closeStore, err := newBenefitStore(cmd.Context(), cfg.Benefits, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.Default()
	svc := difal.NewService(log, rates.DefaultJurisdictions(), cfops,
		difal.WithBenefitStore(store),
		difal.WithMetrics(m),
	)

	router := api.Setup(api.Deps{
		Logger:   log,
		Service:  svc,
		Defaults: cfg.Difal.EngineConfig(),
		Auth: middleware.AuthOptions{
			JWTSecret:  []byte(cfg.Auth.JWTSecret),
			APIKeyHash: []byte(cfg.Auth.APIKeyHash),
		},
		Metrics: m,
	})

	log.Info("DIFAL Service iniciado",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Environment),
		zap.String("benefits_source", cfg.Benefits.Source),
		zap.Bool("auth", cfg.Auth.JWTSecret != "" || cfg.Auth.APIKeyHash != ""),
	)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Error("Falha ao iniciar o servidor de DIFAL", zap.Error(err))
		return err
	}
	return nil
}

// newBenefitStore builds the configured store. The returned func releases it.
func newBenefitStore(ctx context.Context, cfg config.BenefitsConfig, log *zap.Logger) (benefits.Store, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case config.BenefitsFile:
		return benefits.NewFileStore(cfg.File), noop, nil
	case config.BenefitsFirestore:
		if ctx == nil {
			ctx = context.Background()
		}
		client, err := benefits.NewFirestoreClient(ctx, cfg.FirestoreProject, cfg.FirestoreDatabase)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Conectado ao Firestore", zap.String("project", cfg.FirestoreProject), zap.String("collection", cfg.FirestoreCollection))
		return benefits.NewFirestoreStore(client, cfg.FirestoreCollection, log), func() { client.Close() }, nil
	default:
		return nil, noop, nil
	}
}
