package service

import "context"

// FeatureImportance names one contributing feature and its share of the
// model's decision.
type FeatureImportance struct {
	FeatureName string
	Importance  float64
}

// Prediction is the output of an external ML prediction function. The
// core depends only on this abstract contract; the training toolchain,
// model format, and inference runtime live outside it.
type Prediction struct {
	Probability float64 // [0, 1]
	Confidence  float64 // [0, 1]
	ModelTag    string
	TopFeatures []FeatureImportance
}

// MLPredictor is the injected prediction function.
type MLPredictor interface {
	Predict(ctx context.Context, features []float64, featureNames []string) (Prediction, error)
}

// MLPredictorFunc adapts a plain function to MLPredictor.
type MLPredictorFunc func(ctx context.Context, features []float64, featureNames []string) (Prediction, error)

func (f MLPredictorFunc) Predict(ctx context.Context, features []float64, featureNames []string) (Prediction, error) {
	return f(ctx, features, featureNames)
}
