package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClassifier(t *testing.T) {
	artifact := `{"feature_names":["marks","attendance","medical"],"weights":[0.05,0.04,-0.2],"intercept":-4.5}`

	clf, err := DecodeClassifier(strings.NewReader(artifact))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.04, -0.2}, clf.Weights)
	assert.Equal(t, -4.5, clf.Intercept)
}

func TestDecodeClassifierRejectsWrongWidth(t *testing.T) {
	_, err := DecodeClassifier(strings.NewReader(`{"weights":[1,2],"intercept":0}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestDecodeClassifierRejectsGarbage(t *testing.T) {
	_, err := DecodeClassifier(strings.NewReader("not json"))
	require.Error(t, err)
}

func TestPredictDecisionBoundary(t *testing.T) {
	clf := &Classifier{Weights: []float64{1, 0, 0}, Intercept: -50}

	assert.Equal(t, 1, clf.Predict([FeatureCount]float64{50, 0, 0}), "score zero is class 1")
	assert.Equal(t, 1, clf.Predict([FeatureCount]float64{80, 0, 0}))
	assert.Equal(t, 0, clf.Predict([FeatureCount]float64{49.9, 0, 0}))
}

func TestPredictUsesAllFeatures(t *testing.T) {
	clf := &Classifier{Weights: []float64{0.05, 0.04, -0.2}, Intercept: -4.5}

	// 0.05*60 + 0.04*80 - 0.2*0 - 4.5 = 1.7
	assert.Equal(t, 1, clf.Predict([FeatureCount]float64{60, 80, 0}))
	// 0.05*10 + 0.04*20 - 0.2*1 - 4.5 = -3.4
	assert.Equal(t, 0, clf.Predict([FeatureCount]float64{10, 20, 1}))
}
