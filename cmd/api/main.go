package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/infrastructure/database/postgres"
	"github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/amazonclient"
	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/infrastructure/storage"
	"github.com/buffapp/amazon-ads-api/internal/api"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/scheduler"
	"github.com/buffapp/amazon-ads-api/internal/usecases/authenticating"
	"github.com/buffapp/amazon-ads-api/internal/usecases/connecting"
	"github.com/buffapp/amazon-ads-api/internal/usecases/reporting"
	"github.com/buffapp/amazon-ads-api/internal/vault"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	connectionRepo := repository.NewConnectionRepository(pgConn)
	reportJobRepo := repository.NewReportJobRepository(pgConn)
	userRepo := repository.NewUserRepository(pgConn)

	authenticator := authenticating.NewService(userRepo, cfg)

	amazonClient := amazonclient.NewClient(cfg)

	tokenVault, err := vault.New(cfg.Vault, amazonClient, connectionRepo)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao inicializar o cofre de credenciais")
	}

	artifactStorage, err := storage.NewArtifactStorage(ctx, cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao inicializar o storage de artefatos")
	}

	backoffManager := reporting.NewBackoffManager(cfg.Backoff)

	reportService := reporting.NewReportService(
		amazonClient,
		tokenVault,
		reportJobRepo,
		connectionRepo,
		backoffManager,
		artifactStorage,
		cfg.ReportPoller,
	)

	connectorService := connecting.NewService(amazonClient, tokenVault, connectionRepo, cfg)

	reportPollerService := scheduler.NewReportPollerService(
		reportJobRepo,
		reportService,
		cfg,
	)

	// Inicia o agendador em background
	if err := reportPollerService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o processador de relatórios pendentes")
	} else {
		logrus.Info("Processador de relatórios pendentes iniciado com sucesso")
	}

	server, err := api.New(
		cfg,
		reportService,
		connectorService,
		authenticator,
		reportPollerService,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
