package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	appservice "aml-risk-engine/internal/application/service"
	"aml-risk-engine/internal/domain/entity"
	domainsvc "aml-risk-engine/internal/domain/service"
	"aml-risk-engine/internal/infrastructure/blockchain"
	"aml-risk-engine/internal/infrastructure/config"
	"aml-risk-engine/internal/infrastructure/database"
	"aml-risk-engine/internal/infrastructure/logger"
	"aml-risk-engine/internal/infrastructure/messaging"
	"aml-risk-engine/internal/infrastructure/ml"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		return
	}

	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		return
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),

		fx.Provide(
			provideRPCClient,
			provideEntityClassifier,
			provideNeo4jClient,
			provideTransactionSource,
			provideEgoGraphBuilder,
			provideRuleScorer,
			providePatternEngine,
			providePatternLibrary,
			provideFeatureExtractor,
			provideMLPredictor,
			provideHybridCombiner,
			provideAnalysisService,
			provideNATSPublisher,
			provideNATSRequestConsumer,
		),

		fx.Invoke(registerAnalysisConsumer),
		fx.Invoke(registerHealthServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)
	app.Run()
}

func provideRPCClient() blockchain.RPCClient {
	return blockchain.NewMockRPCClient()
}

func provideEntityClassifier(rpc blockchain.RPCClient, log *logger.Logger) domainsvc.EntityClassifier {
	return blockchain.NewEthereumEntityClassifier(rpc, log)
}

func provideNeo4jClient(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (*database.Neo4jClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Neo4J.ConnectTimeout)
	defer cancel()

	client, err := database.NewNeo4jClient(ctx, cfg.Neo4J, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close(ctx)
		},
	})
	return client, nil
}

func provideTransactionSource(client *database.Neo4jClient, log *logger.Logger) domainsvc.TransactionSource {
	return database.NewNeo4jTransactionSource(client, log)
}

func provideEgoGraphBuilder(cfg *config.Config, classifier domainsvc.EntityClassifier, txSource domainsvc.TransactionSource, log *logger.Logger) *domainsvc.EgoGraphBuilder {
	return domainsvc.NewEgoGraphBuilder(classifier, txSource, domainsvc.EgoGraphBuilderConfig{
		MaxDepth:          cfg.Analysis.MaxDepth,
		TimeWindowDays:    cfg.Analysis.TimeWindowDays,
		EdgeCap:           cfg.Analysis.EdgeCap,
		MaxTxPerExpansion: cfg.Analysis.MaxTxPerExpansion,
	}, log)
}

func provideRuleScorer() *domainsvc.RuleScorer {
	return domainsvc.NewRuleScorer()
}

func providePatternEngine() *domainsvc.PatternEngine {
	return domainsvc.NewPatternEngine()
}

func providePatternLibrary() []*entity.PatternAutomaton {
	return domainsvc.BuildStandardPatternLibrary()
}

func provideFeatureExtractor() *domainsvc.FeatureExtractor {
	return domainsvc.NewFeatureExtractor()
}

func provideMLPredictor() domainsvc.MLPredictor {
	return ml.NewHeuristicPredictor(ml.DefaultHeuristicWeights())
}

func provideHybridCombiner(cfg *config.Config) *domainsvc.HybridCombiner {
	return domainsvc.NewHybridCombiner(domainsvc.HybridWeights{
		Rule:    cfg.Analysis.RuleWeight,
		Pattern: cfg.Analysis.PatternWeight,
		ML:      cfg.Analysis.MLWeight,
	})
}

func provideAnalysisService(
	builder *domainsvc.EgoGraphBuilder,
	ruleScorer *domainsvc.RuleScorer,
	patternEngine *domainsvc.PatternEngine,
	patternLib []*entity.PatternAutomaton,
	featureExtr *domainsvc.FeatureExtractor,
	predictor domainsvc.MLPredictor,
	combiner *domainsvc.HybridCombiner,
	log *logger.Logger,
) *appservice.AnalysisService {
	return appservice.NewAnalysisService(builder, ruleScorer, patternEngine, patternLib, featureExtr, predictor, combiner, log)
}

func provideNATSPublisher(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (*messaging.NATSPublisher, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}
	publisher, err := messaging.NewNATSPublisher(cfg.NATS, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			publisher.Close()
			return nil
		},
	})
	return publisher, nil
}

func provideNATSRequestConsumer(cfg *config.Config, log *logger.Logger) *messaging.NATSRequestConsumer {
	return messaging.NewNATSRequestConsumer(cfg.NATS, log)
}

// registerAnalysisConsumer starts the inbound half of the pipeline: it
// connects the NATS analysis-request consumer and, once connected, hands
// its channel to a bounded worker pool that runs each request through
// AnalysisService.Analyze and publishes the resulting RiskScore.
func registerAnalysisConsumer(
	lc fx.Lifecycle,
	cfg *config.Config,
	consumer *messaging.NATSRequestConsumer,
	publisher *messaging.NATSPublisher,
	analysis *appservice.AnalysisService,
	log *logger.Logger,
) {
	l := log.WithComponent("analysis-consumer")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("analysis consumer: %w", err)
			}
			go processAnalysisRequests(ctx, consumer, publisher, analysis, l, cfg)
			l.Info("analysis consumer started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			l.Info("stopping analysis consumer")
			return consumer.Disconnect()
		},
	})
}

// processAnalysisRequests is the risk engine's analogue of the teacher's
// processMessages: a fixed pool of workers draining a bounded job channel.
// Unlike raw transaction inserts, individual analyses aren't mergeable into
// a single call, so "batch" here means the bounded number of requests in
// flight across the pool rather than one Analyze call per many addresses.
func processAnalysisRequests(
	ctx context.Context,
	consumer *messaging.NATSRequestConsumer,
	publisher *messaging.NATSPublisher,
	analysis *appservice.AnalysisService,
	log *logger.Logger,
	cfg *config.Config,
) {
	reqChan := consumer.GetRequestChannel()
	jobChan := make(chan *messaging.AnalysisRequest, cfg.App.WorkerPoolSize)
	var wg sync.WaitGroup

	for i := 0; i < cfg.App.WorkerPoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for req := range jobChan {
				result, err := analysis.Analyze(ctx, req.Address, req.Chain)
				if err != nil {
					log.Error("analysis failed",
						zap.Error(err), zap.String("address", req.Address), zap.Int("worker_id", workerID))
					continue
				}
				if publisher == nil {
					continue
				}
				if err := publisher.Publish(result, time.Now()); err != nil {
					log.Error("failed to publish risk score",
						zap.Error(err), zap.String("address", req.Address), zap.Int("worker_id", workerID))
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return
		case req, ok := <-reqChan:
			if !ok {
				close(jobChan)
				wg.Wait()
				return
			}
			jobChan <- req
		}
	}
}

// registerHealthServer starts a minimal /health endpoint on cfg.App.HTTPPort,
// shut down with cfg.Health.Timeout headroom when the process stops.
func registerHealthServer(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) {
	l := log.WithComponent("health-server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: mux,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			l.Info("starting health server", zap.Int("port", cfg.App.HTTPPort))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					l.Error("health server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Health.Timeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
