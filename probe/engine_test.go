package probe

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
)

type fakeStore struct {
	weights map[string]Weights
	err     error
	calls   int
}

func storeKey(model, probeType string, layer int) string {
	return model + "/" + probeType + "/" + strconv.Itoa(layer)
}

func (f *fakeStore) GetWeights(ctx context.Context, model, probeType string, layer int) (Weights, error) {
	f.calls++
	if f.err != nil {
		return Weights{}, f.err
	}
	w, ok := f.weights[storeKey(model, probeType, layer)]
	if !ok {
		return Weights{}, ErrWeightsNotFound
	}
	return w, nil
}

func newTestEngine(t *testing.T, store WeightStore) *Engine {
	t.Helper()
	catalog, err := NewCatalog([]Descriptor{
		{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			ValidLayers:        []int{0, 7, 15, 23, 31},
			ExpectedDimensions: 4,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewEngine(catalog, store)
}

func TestPredictDeltaContract(t *testing.T) {
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 7): {
			Weights: []float64{0.5, -0.25, 0.125, 1},
			Bias:    0.1,
		},
	}}
	engine := newTestEngine(t, store)

	result, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              7,
		PrimaryActivations: []float64{1, 2, 3, 4},
		TextActivations:    []float64{0.5, 1, 2, 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// delta = [0.5, 1, 1, 2], score = 0.1 + 0.25 - 0.25 + 0.125 + 2 = 2.225
	expected := 1 / (1 + math.Exp(-2.225))
	if math.Abs(result.PredictedProbability-expected) > 1e-12 {
		t.Fatalf("expected probability %v, got %v", expected, result.PredictedProbability)
	}
	if result.Model != "llama3_8b" || result.ProbeType != "linear_probe" || result.Layer != 7 {
		t.Fatalf("result does not echo the request: %+v", result)
	}
}

func TestPredictIdenticalVectorsScoreBiasOnly(t *testing.T) {
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 0): {
			Weights: []float64{10, 20, 30, 40},
			Bias:    0,
		},
	}}
	engine := newTestEngine(t, store)

	// primary == text, so delta is zero and only the bias contributes
	result, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              0,
		PrimaryActivations: []float64{1, 2, 3, 4},
		TextActivations:    []float64{1, 2, 3, 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PredictedProbability != 0.5 {
		t.Fatalf("expected 0.5 for zero score, got %v", result.PredictedProbability)
	}
}

func TestPredictUnknownProbe(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	cases := []struct{ model, probeType string }{
		{"gpt4", "linear_probe"},
		{"llama3_8b", "mlp_probe"},
	}
	for _, tc := range cases {
		_, err := engine.Predict(context.Background(), Request{
			Model:              tc.model,
			ProbeType:          tc.probeType,
			Layer:              7,
			PrimaryActivations: []float64{1, 2, 3, 4},
			TextActivations:    []float64{1, 2, 3, 4},
		})
		var unknown *UnknownProbeError
		if !errors.As(err, &unknown) {
			t.Fatalf("(%q, %q): expected UnknownProbeError, got %v", tc.model, tc.probeType, err)
		}
	}
}

func TestPredictInvalidLayer(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	_, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              99,
		PrimaryActivations: []float64{1, 2, 3, 4},
		TextActivations:    []float64{1, 2, 3, 4},
	})
	var invalid *InvalidLayerError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidLayerError, got %v", err)
	}
	if invalid.Layer != 99 {
		t.Fatalf("error reports wrong layer: %d", invalid.Layer)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(t, store)

	cases := []struct {
		name    string
		primary []float64
		text    []float64
		vector  string
		actual  int
	}{
		{"short primary", []float64{1, 2, 3}, []float64{1, 2, 3, 4}, "primary_activations", 3},
		{"long primary", []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4}, "primary_activations", 5},
		{"short text", []float64{1, 2, 3, 4}, []float64{1, 2, 3}, "text_activations", 3},
		{"empty text", []float64{1, 2, 3, 4}, nil, "text_activations", 0},
	}

	for _, tc := range cases {
		_, err := engine.Predict(context.Background(), Request{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			Layer:              99, // dimension check happens after layer validation
			PrimaryActivations: tc.primary,
			TextActivations:    tc.text,
		})
		var invalid *InvalidLayerError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: layer validation should run first, got %v", tc.name, err)
		}

		_, err = engine.Predict(context.Background(), Request{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			Layer:              7,
			PrimaryActivations: tc.primary,
			TextActivations:    tc.text,
		})
		var mismatch *DimensionMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("%s: expected DimensionMismatchError, got %v", tc.name, err)
		}
		if mismatch.Vector != tc.vector {
			t.Fatalf("%s: error names vector %q, want %q", tc.name, mismatch.Vector, tc.vector)
		}
		if mismatch.Expected != 4 || mismatch.Actual != tc.actual {
			t.Fatalf("%s: expected/actual = %d/%d, want 4/%d", tc.name, mismatch.Expected, mismatch.Actual, tc.actual)
		}
		if !strings.Contains(err.Error(), "4") {
			t.Fatalf("%s: message must state the expected length: %v", tc.name, err)
		}
	}

	if store.calls != 0 {
		t.Fatalf("weight store must not be consulted for invalid requests, got %d calls", store.calls)
	}
}

func TestPredictWeightsUnavailable(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{weights: map[string]Weights{}})

	_, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              15,
		PrimaryActivations: []float64{1, 2, 3, 4},
		TextActivations:    []float64{0, 0, 0, 0},
	})
	var unavailable *WeightsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected WeightsUnavailableError, got %v", err)
	}
	if !errors.Is(err, ErrWeightsNotFound) {
		t.Fatal("underlying store error should be preserved")
	}
}

func TestPredictWeightWidthMismatch(t *testing.T) {
	// Catalog says 4 dimensions but the stored vector has 3: a
	// catalog/storage inconsistency, surfaced as WeightsUnavailable.
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 7): {
			Weights: []float64{1, 2, 3},
			Bias:    0,
		},
	}}
	engine := newTestEngine(t, store)

	_, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              7,
		PrimaryActivations: []float64{1, 2, 3, 4},
		TextActivations:    []float64{0, 0, 0, 0},
	})
	var unavailable *WeightsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected WeightsUnavailableError, got %v", err)
	}
}

func TestPredictConcatContract(t *testing.T) {
	catalog, err := NewCatalog([]Descriptor{
		{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			ValidLayers:        []int{7},
			ExpectedDimensions: 2,
			Contract:           ContractConcat,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 7): {
			Weights: []float64{1, 1, 1, 1},
			Bias:    0,
		},
	}}
	engine := NewEngine(catalog, store)

	result, err := engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              7,
		PrimaryActivations: []float64{0.5, 0.5},
		TextActivations:    []float64{0.5, 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := 1 / (1 + math.Exp(-2.0))
	if math.Abs(result.PredictedProbability-expected) > 1e-12 {
		t.Fatalf("expected %v, got %v", expected, result.PredictedProbability)
	}

	// Combined width is validated, not each vector independently
	_, err = engine.Predict(context.Background(), Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              7,
		PrimaryActivations: []float64{1, 2, 3},
		TextActivations:    []float64{4, 5, 6},
	})
	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if mismatch.Expected != 4 || mismatch.Actual != 6 {
		t.Fatalf("expected/actual = %d/%d, want 4/6", mismatch.Expected, mismatch.Actual)
	}
}

func TestPredictDeterminism(t *testing.T) {
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 31): {
			Weights: []float64{0.1, -0.7, 3.14, 0.001},
			Bias:    -1.5,
		},
	}}
	engine := newTestEngine(t, store)

	req := Request{
		Model:              "llama3_8b",
		ProbeType:          "linear_probe",
		Layer:              31,
		PrimaryActivations: []float64{0.25, -0.5, 1.75, 2},
		TextActivations:    []float64{0.125, 0.5, -1, 0.25},
	}

	first, err := engine.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PredictedProbability != second.PredictedProbability {
		t.Fatalf("identical requests produced %v and %v", first.PredictedProbability, second.PredictedProbability)
	}
}

func TestPredictEveryCatalogLayer(t *testing.T) {
	weights := make(map[string]Weights)
	for _, layer := range []int{0, 7, 15, 23, 31} {
		weights[storeKey("llama3_8b", "linear_probe", layer)] = Weights{
			Weights: []float64{1, -1, 0.5, -0.5},
			Bias:    float64(layer) / 10,
		}
	}
	engine := newTestEngine(t, &fakeStore{weights: weights})

	for _, layer := range []int{0, 7, 15, 23, 31} {
		result, err := engine.Predict(context.Background(), Request{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			Layer:              layer,
			PrimaryActivations: []float64{1, 2, 3, 4},
			TextActivations:    []float64{4, 3, 2, 1},
		})
		if err != nil {
			t.Fatalf("layer %d: unexpected error: %v", layer, err)
		}
		p := result.PredictedProbability
		if !(p > 0 && p < 1) {
			t.Fatalf("layer %d: probability %v not in (0, 1)", layer, p)
		}
	}
}

func TestLogisticMonotonicity(t *testing.T) {
	store := &fakeStore{weights: map[string]Weights{
		storeKey("llama3_8b", "linear_probe", 7): {
			Weights: []float64{2, 0, 0, 0}, // positive weight on the first dimension
			Bias:    0,
		},
	}}
	engine := newTestEngine(t, store)

	prev := -1.0
	for i := 0; i < 20; i++ {
		result, err := engine.Predict(context.Background(), Request{
			Model:              "llama3_8b",
			ProbeType:          "linear_probe",
			Layer:              7,
			PrimaryActivations: []float64{float64(i), 0, 0, 0},
			TextActivations:    []float64{0, 0, 0, 0},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PredictedProbability < prev {
			t.Fatalf("probability decreased from %v to %v", prev, result.PredictedProbability)
		}
		prev = result.PredictedProbability
	}
}

func TestSigmoidStability(t *testing.T) {
	cases := []struct {
		score float64
		low   float64
		high  float64
	}{
		{0, 0.5, 0.5},
		{1000, 0.999, 1},
		{-1000, 0, 0.001},
		{math.MaxFloat64, 0.999, 1},
		{-math.MaxFloat64, 0, 0.001},
	}
	for _, tc := range cases {
		p := sigmoid(tc.score)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("sigmoid(%v) = %v", tc.score, p)
		}
		if p < tc.low || p > tc.high {
			t.Fatalf("sigmoid(%v) = %v, want within [%v, %v]", tc.score, p, tc.low, tc.high)
		}
	}
}
