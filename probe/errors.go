package probe

import (
	"errors"
	"fmt"
)

// ErrWeightsNotFound is returned by WeightStore implementations when no
// weights exist for the requested triple.
var ErrWeightsNotFound = errors.New("probe weights not found")

// UnknownProbeError 请求的 (model, probe_type) 不在目录中
type UnknownProbeError struct {
	Model     string
	ProbeType string
}

func (e *UnknownProbeError) Error() string {
	return fmt.Sprintf("unknown probe: model %q with probe type %q", e.Model, e.ProbeType)
}

// InvalidLayerError 层号不在探针的有效层集合中
type InvalidLayerError struct {
	Model       string
	ProbeType   string
	Layer       int
	ValidLayers []int
}

func (e *InvalidLayerError) Error() string {
	return fmt.Sprintf("invalid layer %d for model %q: valid layers are %v", e.Layer, e.Model, e.ValidLayers)
}

// DimensionMismatchError 激活向量长度与探针期望宽度不符
type DimensionMismatchError struct {
	Vector   string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s must have exactly %d dimensions, got %d", e.Vector, e.Expected, e.Actual)
}

// WeightsUnavailableError 目录中存在该探针但权重存储中没有参数
type WeightsUnavailableError struct {
	Model     string
	ProbeType string
	Layer     int
	Err       error
}

func (e *WeightsUnavailableError) Error() string {
	return fmt.Sprintf("weights unavailable for model %q probe %q layer %d: %v", e.Model, e.ProbeType, e.Layer, e.Err)
}

func (e *WeightsUnavailableError) Unwrap() error {
	return e.Err
}
