package ml

import (
	"encoding/json"
	"fmt"
	"io"
)

// FeatureCount is the width of the input vector the risk model expects:
// marks, adjusted attendance, medical-certificate flag, in that order.
const FeatureCount = 3

// Classifier is a binary linear classifier deserialized from the model
// artifact. The artifact is opaque to the portal beyond this contract;
// training and feature engineering happen elsewhere.
type Classifier struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
}

// DecodeClassifier parses a serialized classifier and validates its shape.
func DecodeClassifier(r io.Reader) (*Classifier, error) {
	var clf Classifier
	if err := json.NewDecoder(r).Decode(&clf); err != nil {
		return nil, fmt.Errorf("decode classifier artifact: %w", err)
	}
	if len(clf.Weights) != FeatureCount {
		return nil, fmt.Errorf("classifier expects %d weights, artifact has %d", FeatureCount, len(clf.Weights))
	}
	return &clf, nil
}

// Predict returns the binary class for a single feature vector: 1 when the
// decision function is non-negative, 0 otherwise.
func (c *Classifier) Predict(features [FeatureCount]float64) int {
	score := c.Intercept
	for i, w := range c.Weights {
		score += w * features[i]
	}
	if score >= 0 {
		return 1
	}
	return 0
}
