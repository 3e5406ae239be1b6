package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/analytics"
	"github.com/LearnShelfLab/analytics_svc/internal/content"
	"github.com/LearnShelfLab/analytics_svc/internal/httpapi"
	"github.com/LearnShelfLab/analytics_svc/internal/pageview"
	"github.com/LearnShelfLab/analytics_svc/internal/storage"
	"github.com/LearnShelfLab/analytics_svc/internal/task"
)

const (
	commandUseName              = "server"
	commandShortDescription     = "Run the page view analytics server"
	commandLongDescription      = "Launch the HTTP server that ingests page views and serves catalog analytics"
	missingConfigurationMessage = "missing required configuration"
	loggerCreationErrorMessage  = "logger"
	logEventListening           = "listening"
	logFieldAddress             = "addr"

	flagNameApplicationAddress      = "app-addr"
	flagNameDatabaseDriver          = "db-driver"
	flagNameDatabaseDataSourceName  = "db-dsn"
	flagNameAdminBearerToken        = "admin-bearer-token"
	flagNameRateLimitMaxRequests    = "rate-limit-max-requests"
	flagNameRateLimitWindowSeconds  = "rate-limit-window-seconds"
	flagNameRollupRetentionDays     = "rollup-retention-days"
	flagUsageApplicationAddress     = "address for the HTTP server to listen on"
	flagUsageDatabaseDriver         = "database driver (sqlite or postgres)"
	flagUsageDatabaseDataSourceName = "database connection string"
	flagUsageAdminBearerToken       = "bearer token required for admin analytics access"
	flagUsageRateLimitMaxRequests   = "page view requests admitted per client per window"
	flagUsageRateLimitWindowSeconds = "rate limit window length in seconds"
	flagUsageRollupRetentionDays    = "days of raw page views to keep, 0 keeps everything"

	environmentKeyApplicationAddress     = "APP_ADDR"
	environmentKeyDatabaseDriver         = "DB_DRIVER"
	environmentKeyDatabaseDataSource     = "DB_DSN"
	environmentKeyAdminBearerToken       = "ADMIN_BEARER_TOKEN"
	environmentKeyRateLimitMaxRequests   = "RATE_LIMIT_MAX_REQUESTS"
	environmentKeyRateLimitWindowSeconds = "RATE_LIMIT_WINDOW_SECONDS"
	environmentKeyRollupRetentionDays    = "ROLLUP_RETENTION_DAYS"

	defaultApplicationAddress = ":8080"
	defaultDatabaseDriver     = storage.DriverNameSQLite

	loggerContextOpenDatabase = "open_db"
	loggerContextAutoMigrate  = "migrate"
	loggerContextServer       = "server"
	readHeaderTimeoutSeconds  = 5

	dailyRollupInterval = time.Hour

	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"
)

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	DatabaseDriverName     string
	DatabaseDataSourceName string
	AdminBearerToken       string
	RateLimitMaxRequests   int
	RateLimitWindowSeconds int
	RollupRetentionDays    int
}

// DatabaseOpener opens a database connection using the provided configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.SetDefault(environmentKeyApplicationAddress, defaultApplicationAddress)
	application.configurationLoader.SetDefault(environmentKeyDatabaseDriver, defaultDatabaseDriver)
	application.configurationLoader.SetDefault(environmentKeyDatabaseDataSource, "")
	application.configurationLoader.SetDefault(environmentKeyAdminBearerToken, "")
	application.configurationLoader.SetDefault(environmentKeyRateLimitMaxRequests, pageview.DefaultRateLimitMaxRequests)
	application.configurationLoader.SetDefault(environmentKeyRateLimitWindowSeconds, int(pageview.DefaultRateLimitWindow.Seconds()))
	application.configurationLoader.SetDefault(environmentKeyRollupRetentionDays, 0)
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	commandFlags.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
	commandFlags.String(flagNameDatabaseDriver, defaultDatabaseDriver, flagUsageDatabaseDriver)
	commandFlags.String(flagNameDatabaseDataSourceName, "", flagUsageDatabaseDataSourceName)
	commandFlags.String(flagNameAdminBearerToken, "", flagUsageAdminBearerToken)
	commandFlags.Int(flagNameRateLimitMaxRequests, pageview.DefaultRateLimitMaxRequests, flagUsageRateLimitMaxRequests)
	commandFlags.Int(flagNameRateLimitWindowSeconds, int(pageview.DefaultRateLimitWindow.Seconds()), flagUsageRateLimitWindowSeconds)
	commandFlags.Int(flagNameRollupRetentionDays, 0, flagUsageRollupRetentionDays)

	flagBindings := map[string]string{
		environmentKeyApplicationAddress:     flagNameApplicationAddress,
		environmentKeyDatabaseDriver:         flagNameDatabaseDriver,
		environmentKeyDatabaseDataSource:     flagNameDatabaseDataSourceName,
		environmentKeyAdminBearerToken:       flagNameAdminBearerToken,
		environmentKeyRateLimitMaxRequests:   flagNameRateLimitMaxRequests,
		environmentKeyRateLimitWindowSeconds: flagNameRateLimitWindowSeconds,
		environmentKeyRollupRetentionDays:    flagNameRollupRetentionDays,
	}
	for environmentKey, flagName := range flagBindings {
		if bindErr := application.bindFlag(commandFlags, environmentKey, flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, environmentKey, flagName); environmentErr != nil {
			return environmentErr
		}
	}

	if markErr := command.MarkFlagRequired(flagNameDatabaseDataSourceName); markErr != nil {
		return markErr
	}

	if markErr := command.MarkFlagRequired(flagNameAdminBearerToken); markErr != nil {
		return markErr
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() ServerConfig {
	return ServerConfig{
		ApplicationAddress:     application.configurationLoader.GetString(environmentKeyApplicationAddress),
		DatabaseDriverName:     strings.TrimSpace(application.configurationLoader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDataSourceName: strings.TrimSpace(application.configurationLoader.GetString(environmentKeyDatabaseDataSource)),
		AdminBearerToken:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyAdminBearerToken)),
		RateLimitMaxRequests:   application.configurationLoader.GetInt(environmentKeyRateLimitMaxRequests),
		RateLimitWindowSeconds: application.configurationLoader.GetInt(environmentKeyRateLimitWindowSeconds),
		RollupRetentionDays:    application.configurationLoader.GetInt(environmentKeyRollupRetentionDays),
	}
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadConfiguration()
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriverName,
		DataSourceName: serverConfig.DatabaseDataSourceName,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	backgroundCtx, cancelBackground := context.WithCancel(command.Context())
	defer cancelBackground()

	rateLimiter := pageview.NewRateLimiter(
		serverConfig.RateLimitMaxRequests,
		time.Duration(serverConfig.RateLimitWindowSeconds)*time.Second,
		pageview.SystemClock(),
	)
	rateLimiter.StartSweeping(backgroundCtx)
	defer rateLimiter.Shutdown()

	pageViewStore := storage.NewDatabasePageViewStore(database)
	contentDirectory := content.NewDatabaseDirectory(database)
	ingestGateway := pageview.NewGateway(pageViewStore, rateLimiter, logger)
	rollupEngine := analytics.NewEngine(pageViewStore, contentDirectory, logger)

	rollupScheduler := task.NewScheduler(dailyRollupInterval, task.NewDailyRollupJob(database, logger, task.DailyRollupConfig{
		RetentionDays: serverConfig.RollupRetentionDays,
	}).Run)
	rollupScheduler.Start(backgroundCtx)
	defer rollupScheduler.Stop()

	router := buildRouter(
		logger,
		httpapi.NewPageViewHandlers(ingestGateway, logger),
		httpapi.NewAnalyticsHandlers(rollupEngine, logger),
		serverConfig.AdminBearerToken,
	)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSourceName)
	}

	if configuration.AdminBearerToken == "" {
		missingParameters = append(missingParameters, flagNameAdminBearerToken)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
