package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cfs-platform/transaction-service/internal/api/dto"
	"github.com/cfs-platform/transaction-service/internal/application"
	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/internal/flows"
	mongoRepo "github.com/cfs-platform/transaction-service/internal/infrastructure/mongodb"
	"github.com/cfs-platform/transaction-service/pkg/api"
	"github.com/cfs-platform/transaction-service/pkg/cloudevents"
	"github.com/cfs-platform/transaction-service/pkg/errors"
	"github.com/cfs-platform/transaction-service/pkg/kafka"
	"github.com/cfs-platform/transaction-service/pkg/logging"
	"github.com/cfs-platform/transaction-service/pkg/metrics"
	"github.com/cfs-platform/transaction-service/pkg/middleware"
	"github.com/cfs-platform/transaction-service/pkg/mongodb"
	"github.com/cfs-platform/transaction-service/pkg/outbox"
	"github.com/cfs-platform/transaction-service/pkg/tracing"
)

const serviceName = "cfs-transaction-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting cfs-transaction-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer behind a circuit breaker
	kafkaProducer := kafka.NewProducer(config.Kafka)
	cbProducer := kafka.NewCircuitBreakerProducer(kafkaProducer, m, logger.Logger)
	defer cbProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)

	// Initialize repositories
	mongoLogger := logger.WithComponent("mongodb")
	txRepo := mongoRepo.NewPackageTransactionRepository(mongoClient.Database(), eventFactory, mongoLogger, m)
	flowRepo := mongoRepo.NewFlowRepository(mongoClient.Database(), mongoLogger, m)
	packingListRepo := mongoRepo.NewPackingListRepository(mongoClient.Database(), mongoLogger, m)
	locationRepo := mongoRepo.NewStorageLocationRepository(mongoClient.Database(), mongoLogger, m)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		txRepo.GetOutboxRepository(),
		cbProducer,
		logger.WithComponent("outbox"),
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	txService := application.NewTransactionService(txRepo, flowRepo, packingListRepo, locationRepo, logger)
	flowService := application.NewFlowService(flowRepo, logger)
	lookupService := application.NewLookupService(packingListRepo, locationRepo, logger)

	// Seed flow definitions from configuration
	if seedPath := getEnv("FLOW_DEFINITIONS", "config/flows.yaml"); seedPath != "" {
		definitions, err := flows.Load(seedPath)
		if err != nil {
			logger.WithError(err).Error("Failed to load flow definitions")
			os.Exit(1)
		}
		if err := flowService.SeedFlows(ctx, definitions); err != nil {
			logger.WithError(err).Error("Failed to seed flow definitions")
			os.Exit(1)
		}
		logger.Info("Flow definitions seeded", "path", seedPath, "count", len(definitions))
	}

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes. Permissions arrive as a header set by the gateway; each
	// mutating route declares the permission key it requires.
	v1 := router.Group("/api/v1")
	v1.Use(middleware.OperatorPermissions())

	txRoutes := v1.Group("/transactions")
	{
		txRoutes.POST("",
			middleware.RequirePermission(middleware.PermissionTransactionCreate),
			createTransactionHandler(txService, flowService, m, logger))
		txRoutes.GET("/active", getActiveTransactionHandler(txService, flowService, logger))
		txRoutes.GET("/:transactionId", getTransactionHandler(txService, flowService, logger))
		txRoutes.POST("/:transactionId/steps",
			middleware.RequirePermission(middleware.PermissionTransactionStep),
			handleStepHandler(txService, flowService, m, logger))
		txRoutes.POST("/:transactionId/complete",
			middleware.RequirePermission(middleware.PermissionTransactionComplete),
			completeTransactionHandler(txService, flowService, m, logger))
		txRoutes.DELETE("/:transactionId",
			middleware.RequirePermission(middleware.PermissionTransactionDelete),
			deleteTransactionHandler(txService, m, logger))
	}

	flowRoutes := v1.Group("/flows")
	{
		flowRoutes.GET("", listFlowsHandler(flowService, logger))
		flowRoutes.GET("/:name", getFlowHandler(flowService, logger))
		flowRoutes.PUT("/:name",
			middleware.RequirePermission(middleware.PermissionFlowManage),
			upsertFlowHandler(flowService, logger))
	}

	packingListRoutes := v1.Group("/packing-lists")
	{
		packingListRoutes.GET("/:packingListId", getPackingListHandler(lookupService, logger))
		packingListRoutes.GET("/:packingListId/transactions", listTransactionsHandler(txService, logger))
		packingListRoutes.PUT("/:packingListId", upsertPackingListHandler(lookupService, logger))
	}

	locationRoutes := v1.Group("/locations")
	{
		locationRoutes.GET("", listLocationsHandler(lookupService, logger))
		locationRoutes.GET("/:locationId", getLocationHandler(lookupService, logger))
		locationRoutes.PUT("/:locationId", upsertLocationHandler(lookupService, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8040"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "cfs_transactions"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

func createTransactionHandler(service *application.TransactionService, flowService *application.FlowService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CreateTransactionRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.packing_list.id": req.PackingListID,
			"cfs.flow.name":       req.FlowName,
		})

		cmd := application.CreateTransactionCommand{
			TransactionID: req.TransactionID,
			PackingListID: req.PackingListID,
			FlowName:      req.FlowName,
		}

		tx, err := service.CreateTransaction(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		m.RecordTransactionCreated(tx.FlowName)

		c.JSON(http.StatusCreated, toTransactionResponse(tx, resolveFlowForResponse(c, flowService, tx.FlowName)))
	}
}

func getTransactionHandler(service *application.TransactionService, flowService *application.FlowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		transactionID := c.Param("transactionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.transaction.id": transactionID,
		})

		tx, err := service.GetTransaction(c.Request.Context(), transactionID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toTransactionResponse(tx, resolveFlowForResponse(c, flowService, tx.FlowName)))
	}
}

// getActiveTransactionHandler resolves the transaction the console should
// display for a packing list. An in-progress transaction wins over the
// latest done one; no transaction at all is a 404.
func getActiveTransactionHandler(service *application.TransactionService, flowService *application.FlowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		packingListID := c.Query("packingListId")
		if packingListID == "" {
			responder.RespondBadRequest("packingListId query parameter is required")
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.packing_list.id": packingListID,
		})

		tx, err := service.GetActiveTransaction(c.Request.Context(), packingListID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}
		if tx == nil {
			responder.RespondWithAppError(errors.ErrNotFoundWithID("transaction for packing list", packingListID))
			return
		}

		c.JSON(http.StatusOK, toTransactionResponse(tx, resolveFlowForResponse(c, flowService, tx.FlowName)))
	}
}

func listTransactionsHandler(service *application.TransactionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		packingListID := c.Param("packingListId")
		txs, err := service.ListTransactions(c.Request.Context(), packingListID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		summaries := make([]dto.TransactionSummary, len(txs))
		for i, tx := range txs {
			summaries[i] = dto.TransactionSummary{
				TransactionID: tx.TransactionID,
				PackingListID: tx.PackingListID,
				FlowName:      tx.FlowName,
				Status:        string(tx.Status),
				PackageCount:  len(tx.Packages),
				CreatedAt:     tx.CreatedAt,
				CompletedAt:   tx.CompletedAt,
			}
		}

		// The repository returns newest first; only creation-time ordering
		// is supported.
		if sortReq := api.ParseSort(c, "createdAt"); sortReq.Order == api.SortAsc {
			for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
				summaries[i], summaries[j] = summaries[j], summaries[i]
			}
		}

		c.JSON(http.StatusOK, api.Paginate(summaries, api.ParsePagination(c)))
	}
}

func handleStepHandler(service *application.TransactionService, flowService *application.FlowService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		transactionID := c.Param("transactionId")

		var req dto.HandleStepRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.transaction.id": transactionID,
			"cfs.step.code":      req.Step,
			"cfs.package.count":  len(req.PackageIDs),
		})

		cmd := application.HandleStepCommand{
			TransactionID: transactionID,
			Step:          domain.StepCode(req.Step),
			LineID:        req.LineID,
			PackageNo:     req.PackageNo,
			PackageIDs:    req.PackageIDs,
			LocationID:    req.LocationID,
		}

		tx, err := service.HandleStep(c.Request.Context(), cmd)
		if err != nil {
			m.RecordStepExecuted("", req.Step, false)
			respondDomainError(responder, err)
			return
		}

		m.RecordStepExecuted(tx.FlowName, req.Step, true)
		if domain.StepCode(req.Step) == domain.StepCreate {
			m.RecordPackagesCreated(tx.FlowName, 1)
		}

		c.JSON(http.StatusOK, toTransactionResponse(tx, resolveFlowForResponse(c, flowService, tx.FlowName)))
	}
}

func completeTransactionHandler(service *application.TransactionService, flowService *application.FlowService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		transactionID := c.Param("transactionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.transaction.id": transactionID,
		})

		cmd := application.CompleteTransactionCommand{TransactionID: transactionID}

		tx, err := service.CompleteTransaction(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		m.RecordTransactionCompleted(tx.FlowName)

		c.JSON(http.StatusOK, toTransactionResponse(tx, resolveFlowForResponse(c, flowService, tx.FlowName)))
	}
}

func deleteTransactionHandler(service *application.TransactionService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		transactionID := c.Param("transactionId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cfs.transaction.id": transactionID,
		})

		tx, err := service.GetTransaction(c.Request.Context(), transactionID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		cmd := application.DeleteTransactionCommand{TransactionID: transactionID}

		if err := service.DeleteTransaction(c.Request.Context(), cmd); err != nil {
			respondDomainError(responder, err)
			return
		}

		m.RecordTransactionDeleted(tx.FlowName)

		c.Status(http.StatusNoContent)
	}
}

func listFlowsHandler(service *application.FlowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		flowList, err := service.ListFlows(c.Request.Context())
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		flowResponses := make([]dto.FlowResponse, len(flowList))
		for i, flow := range flowList {
			flowResponses[i] = toFlowResponse(flow)
		}

		c.JSON(http.StatusOK, api.Paginate(flowResponses, api.ParsePagination(c)))
	}
}

func getFlowHandler(service *application.FlowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		name := c.Param("name")
		flow, err := service.GetFlow(c.Request.Context(), name)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toFlowResponse(flow))
	}
}

func upsertFlowHandler(service *application.FlowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.UpsertFlowRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		flow := &domain.Flow{
			Name:  c.Param("name"),
			Steps: make([]domain.Step, len(req.Steps)),
		}
		for i, step := range req.Steps {
			flow.Steps[i] = domain.Step{
				Code:       domain.StepCode(step.Code),
				FromStatus: domain.PositionStatus(step.FromStatus),
				ToStatus:   domain.PositionStatus(step.ToStatus),
			}
		}

		if err := service.SaveFlow(c.Request.Context(), flow); err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toFlowResponse(flow))
	}
}

func getPackingListHandler(service *application.LookupService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		packingListID := c.Param("packingListId")
		list, err := service.GetPackingList(c.Request.Context(), packingListID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toPackingListResponse(list))
	}
}

func upsertPackingListHandler(service *application.LookupService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.UpsertPackingListRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		if req.PackingListID != c.Param("packingListId") {
			responder.RespondBadRequest("packingListId in body does not match path")
			return
		}

		list := &domain.PackingList{
			PackingListID: req.PackingListID,
			HBLNo:         req.HBLNo,
			ContainerNo:   req.ContainerNo,
			Lines:         make([]domain.PackingListLine, len(req.Lines)),
			CreatedAt:     time.Now().UTC(),
		}
		for i, line := range req.Lines {
			list.Lines[i] = domain.PackingListLine{
				LineID:       line.LineID,
				CargoName:    line.CargoName,
				PackageCount: line.PackageCount,
				Unit:         line.Unit,
				Marks:        line.Marks,
				GrossWeight:  line.GrossWeight,
				Volume:       line.Volume,
			}
		}

		if err := service.SavePackingList(c.Request.Context(), list); err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toPackingListResponse(list))
	}
}

func getLocationHandler(service *application.LookupService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		locationID := c.Param("locationId")
		loc, err := service.GetLocation(c.Request.Context(), locationID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toLocationResponse(loc))
	}
}

func listLocationsHandler(service *application.LookupService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		zone := c.Query("zone")
		if zone == "" {
			responder.RespondBadRequest("zone query parameter is required")
			return
		}

		locations, err := service.GetLocationsByZone(c.Request.Context(), zone)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		locationResponses := make([]dto.LocationResponse, len(locations))
		for i, loc := range locations {
			locationResponses[i] = toLocationResponse(loc)
		}

		c.JSON(http.StatusOK, api.Paginate(locationResponses, api.ParsePagination(c)))
	}
}

func upsertLocationHandler(service *application.LookupService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.UpsertLocationRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		if req.LocationID != c.Param("locationId") {
			responder.RespondBadRequest("locationId in body does not match path")
			return
		}

		loc := &domain.StorageLocation{
			LocationID:      req.LocationID,
			DisplayCode:     req.DisplayCode,
			Zone:            req.Zone,
			Capacity:        req.Capacity,
			CurrentQuantity: req.CurrentQuantity,
		}

		if err := service.SaveLocation(c.Request.Context(), loc); err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, toLocationResponse(loc))
	}
}

// respondDomainError maps domain sentinel errors to HTTP error responses.
// Anything unrecognized falls through to the generic mapper.
func respondDomainError(responder *middleware.ErrorResponder, err error) {
	switch {
	case stderrors.Is(err, domain.ErrTransactionNotFound),
		stderrors.Is(err, domain.ErrFlowNotFound),
		stderrors.Is(err, domain.ErrPackingListNotFound),
		stderrors.Is(err, domain.ErrLocationNotFound),
		stderrors.Is(err, domain.ErrLineNotFound):
		responder.RespondWithAppError(errors.ErrNotFound(err.Error()).Wrap(err))

	case stderrors.Is(err, domain.ErrPackagesNotEligible):
		responder.RespondWithAppError(errors.NewAppError(errors.CodeStaleSelection, err.Error(), http.StatusConflict).Wrap(err))

	case stderrors.Is(err, domain.ErrTransactionInProgress),
		stderrors.Is(err, domain.ErrTransactionDone),
		stderrors.Is(err, domain.ErrNotCompletable),
		stderrors.Is(err, domain.ErrEmptyTransaction),
		stderrors.Is(err, domain.ErrTransactionNotEmpty),
		stderrors.Is(err, domain.ErrLocationFull):
		responder.RespondWithAppError(errors.ErrConflict(err.Error()).Wrap(err))

	case stderrors.Is(err, domain.ErrFlowChainBroken),
		stderrors.Is(err, domain.ErrFlowNameEmpty):
		responder.RespondWithAppError(errors.ErrFlowMisconfigured("", err.Error()).Wrap(err))

	case stderrors.Is(err, domain.ErrStepNotInFlow),
		stderrors.Is(err, domain.ErrStepPayloadMismatch),
		stderrors.Is(err, domain.ErrPackageNoRequired),
		stderrors.Is(err, domain.ErrLocationRequired),
		stderrors.Is(err, domain.ErrNoPackagesSelected):
		responder.RespondWithAppError(errors.ErrValidation(err.Error()).Wrap(err))

	default:
		responder.RespondWithAppError(errors.MapDomainError(err))
	}
}

// resolveFlowForResponse loads the flow so responses can carry derived step
// counts. A missing flow degrades the response rather than failing it.
func resolveFlowForResponse(c *gin.Context, flowService *application.FlowService, name string) *domain.Flow {
	flow, err := flowService.GetFlow(c.Request.Context(), name)
	if err != nil {
		return nil
	}
	return flow
}

// Helper functions to convert domain to response

func toTransactionResponse(tx *domain.PackageTransaction, flow *domain.Flow) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		TransactionID: tx.TransactionID,
		PackingListID: tx.PackingListID,
		FlowName:      tx.FlowName,
		Status:        string(tx.Status),
		Deletable:     tx.CanDelete(),
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		CompletedAt:   tx.CompletedAt,
	}

	resp.Packages = make([]dto.PackageResponse, len(tx.Packages))
	for i, pkg := range tx.Packages {
		resp.Packages[i] = dto.PackageResponse{
			ID:         pkg.ID,
			PackageNo:  pkg.PackageNo,
			LineID:     pkg.LineID,
			LocationID: pkg.LocationID,
			Status:     string(pkg.Status),
			CreatedAt:  pkg.CreatedAt,
			UpdatedAt:  pkg.UpdatedAt,
		}
	}

	resp.StepCounts = make([]dto.StepCountEntry, 0)
	if flow != nil {
		for _, count := range tx.StepCounts(flow) {
			resp.StepCounts = append(resp.StepCounts, dto.StepCountEntry{
				Code:  string(count.Code),
				Count: count.Count,
			})
		}
		if terminal, ok := flow.TerminalStatus(); ok {
			resp.Completable = tx.CanComplete(terminal)
		}
	}

	return resp
}

func toFlowResponse(flow *domain.Flow) dto.FlowResponse {
	resp := dto.FlowResponse{
		Name:      flow.Name,
		Steps:     make([]dto.FlowStepResponse, len(flow.Steps)),
		UpdatedAt: flow.UpdatedAt,
	}
	for i, step := range flow.Steps {
		resp.Steps[i] = dto.FlowStepResponse{
			Code:       string(step.Code),
			FromStatus: string(step.FromStatus),
			ToStatus:   string(step.ToStatus),
			Builtin:    step.Code.IsBuiltin(),
		}
	}
	return resp
}

func toPackingListResponse(list *domain.PackingList) dto.PackingListResponse {
	resp := dto.PackingListResponse{
		PackingListID: list.PackingListID,
		HBLNo:         list.HBLNo,
		ContainerNo:   list.ContainerNo,
		Lines:         make([]dto.PackingListLineResponse, len(list.Lines)),
		TotalPackages: list.TotalPackageCount(),
		CreatedAt:     list.CreatedAt,
		UpdatedAt:     list.UpdatedAt,
	}
	for i, line := range list.Lines {
		resp.Lines[i] = dto.PackingListLineResponse{
			LineID:       line.LineID,
			CargoName:    line.CargoName,
			PackageCount: line.PackageCount,
			Unit:         line.Unit,
			Marks:        line.Marks,
			GrossWeight:  line.GrossWeight,
			Volume:       line.Volume,
		}
	}
	return resp
}

func toLocationResponse(loc *domain.StorageLocation) dto.LocationResponse {
	return dto.LocationResponse{
		LocationID:      loc.LocationID,
		DisplayCode:     loc.DisplayCode,
		Zone:            loc.Zone,
		Capacity:        loc.Capacity,
		CurrentQuantity: loc.CurrentQuantity,
		Available:       loc.AvailableCapacity(),
	}
}
