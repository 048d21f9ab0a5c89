package service

import (
	"context"
	"fmt"

	"aml-risk-engine/internal/domain/entity"
	domainsvc "aml-risk-engine/internal/domain/service"
	"aml-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// AnalysisResult is the full output of a single address/chain risk
// analysis: the fused RiskScore plus the intermediate ego graph and pattern
// matches a caller may want to inspect or persist.
type AnalysisResult struct {
	Address string
	Chain   string
	Score   entity.RiskScore
	Graph   *entity.EgoGraph
	Matches []*entity.MatchResult
}

// AnalysisService orchestrates the full pipeline: Ego-Graph Builder ->
// Rule Scorer (via the exposure extractor) -> Pattern Engine -> Feature
// Extractor -> ML Predictor -> Hybrid Combiner.
type AnalysisService struct {
	builder       *domainsvc.EgoGraphBuilder
	exposure      *GraphExposureExtractor
	ruleScorer    *domainsvc.RuleScorer
	patternEngine *domainsvc.PatternEngine
	patternLib    []*entity.PatternAutomaton
	featureExtr   *domainsvc.FeatureExtractor
	predictor     domainsvc.MLPredictor
	combiner      *domainsvc.HybridCombiner
	logger        *logger.Logger
}

// NewAnalysisService wires the pipeline's stages together. predictor may be
// nil, in which case a zero-probability prediction is used: the ML stage is
// allowed to be absent without failing the analysis.
func NewAnalysisService(
	builder *domainsvc.EgoGraphBuilder,
	ruleScorer *domainsvc.RuleScorer,
	patternEngine *domainsvc.PatternEngine,
	patternLib []*entity.PatternAutomaton,
	featureExtr *domainsvc.FeatureExtractor,
	predictor domainsvc.MLPredictor,
	combiner *domainsvc.HybridCombiner,
	log *logger.Logger,
) *AnalysisService {
	return &AnalysisService{
		builder:       builder,
		exposure:      NewGraphExposureExtractor(),
		ruleScorer:    ruleScorer,
		patternEngine: patternEngine,
		patternLib:    patternLib,
		featureExtr:   featureExtr,
		predictor:     predictor,
		combiner:      combiner,
		logger:        log.WithComponent("analysis-service"),
	}
}

// Analyze runs the full pipeline for a single address on a single chain.
func (s *AnalysisService) Analyze(ctx context.Context, address, chain string) (*AnalysisResult, error) {
	log := s.logger.WithAnalysis(address, chain)
	log.Info("starting analysis")

	graph, err := s.builder.Build(ctx, address, chain)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	exposure := s.exposure.Extract(graph)
	ruleScore := s.ruleScorer.Score(exposure)

	matches, err := s.patternEngine.Run(ctx, graph, s.patternLib)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	features, featureNames := s.featureExtr.Extract(graph)

	prediction := domainsvc.Prediction{}
	if s.predictor != nil {
		prediction, err = s.predictor.Predict(ctx, features, featureNames)
		if err != nil {
			log.Warn("ml predictor unavailable, proceeding with zero-weight prediction", zap.Error(err))
			prediction = domainsvc.Prediction{}
		}
	}

	final := s.combiner.Combine(ruleScore, matches, prediction)

	log.Info("analysis complete",
		zap.Int("score", final.Total),
		zap.String("level", string(final.Level)),
	)

	return &AnalysisResult{
		Address: address,
		Chain:   chain,
		Score:   final,
		Graph:   graph,
		Matches: matches,
	}, nil
}
