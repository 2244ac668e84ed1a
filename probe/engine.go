package probe

import (
	"context"
	"fmt"
	"math"
)

// WeightStore 按三元组查找探针参数的外部存储
type WeightStore interface {
	GetWeights(ctx context.Context, model, probeType string, layer int) (Weights, error)
}

// Engine 线性推理引擎：校验请求、取权重、计算概率
type Engine struct {
	catalog *Catalog
	store   WeightStore
}

// NewEngine 创建推理引擎
func NewEngine(catalog *Catalog, store WeightStore) *Engine {
	return &Engine{catalog: catalog, store: store}
}

// Predict 对一次请求做完整的校验与推理。
// 失败时返回 UnknownProbeError / InvalidLayerError / DimensionMismatchError /
// WeightsUnavailableError 之一，不返回部分结果。
func (e *Engine) Predict(ctx context.Context, req Request) (Result, error) {
	desc, err := e.catalog.Lookup(req.Model, req.ProbeType)
	if err != nil {
		return Result{}, err
	}

	if err := e.catalog.ValidateLayer(desc, req.Layer); err != nil {
		return Result{}, err
	}

	input, err := buildInput(desc, req)
	if err != nil {
		return Result{}, err
	}

	weights, err := e.store.GetWeights(ctx, req.Model, req.ProbeType, req.Layer)
	if err != nil {
		return Result{}, &WeightsUnavailableError{
			Model:     req.Model,
			ProbeType: req.ProbeType,
			Layer:     req.Layer,
			Err:       err,
		}
	}
	if len(weights.Weights) != len(input) {
		// 目录与存储不一致：权重文件的宽度和探针声明的输入宽度对不上
		return Result{}, &WeightsUnavailableError{
			Model:     req.Model,
			ProbeType: req.ProbeType,
			Layer:     req.Layer,
			Err:       fmt.Errorf("weight vector has %d values, probe input width is %d", len(weights.Weights), len(input)),
		}
	}

	score := weights.Bias
	for i, v := range input {
		score += weights.Weights[i] * v
	}

	return Result{
		Model:                req.Model,
		ProbeType:            req.ProbeType,
		Layer:                req.Layer,
		PredictedProbability: sigmoid(score),
	}, nil
}

// buildInput 按描述声明的契约把两个激活向量合成探针输入
func buildInput(d Descriptor, req Request) ([]float64, error) {
	switch d.Contract {
	case ContractConcat:
		width := d.InputWidth()
		combined := len(req.PrimaryActivations) + len(req.TextActivations)
		if combined != width {
			return nil, &DimensionMismatchError{
				Vector:   "primary_activations and text_activations combined",
				Expected: width,
				Actual:   combined,
			}
		}
		input := make([]float64, 0, width)
		input = append(input, req.PrimaryActivations...)
		input = append(input, req.TextActivations...)
		return input, nil
	default:
		// delta 契约：逐元素差 primary - text
		if len(req.PrimaryActivations) != d.ExpectedDimensions {
			return nil, &DimensionMismatchError{
				Vector:   "primary_activations",
				Expected: d.ExpectedDimensions,
				Actual:   len(req.PrimaryActivations),
			}
		}
		if len(req.TextActivations) != d.ExpectedDimensions {
			return nil, &DimensionMismatchError{
				Vector:   "text_activations",
				Expected: d.ExpectedDimensions,
				Actual:   len(req.TextActivations),
			}
		}
		input := make([]float64, d.ExpectedDimensions)
		for i := range input {
			input[i] = req.PrimaryActivations[i] - req.TextActivations[i]
		}
		return input, nil
	}
}

// sigmoid 数值稳定的 logistic 函数，避免对大正数取 exp
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	ex := math.Exp(x)
	return ex / (1 + ex)
}
