// Package probe 提供探针目录与线性推理引擎
package probe

import (
	"fmt"
	"sort"
)

type catalogKey struct {
	model     string
	probeType string
}

// Catalog 已知探针目录，启动时构建一次，此后只读，可被并发读取
type Catalog struct {
	descriptors []Descriptor
	index       map[catalogKey]int
}

// NewCatalog 从静态配置构建探针目录
func NewCatalog(descriptors []Descriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[catalogKey]int, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.Model == "" {
			return nil, fmt.Errorf("probe descriptor has empty model")
		}
		if d.ProbeType == "" {
			return nil, fmt.Errorf("probe %q has empty probe_type", d.Model)
		}
		if d.ExpectedDimensions <= 0 {
			return nil, fmt.Errorf("probe %q: expected_dimensions must be positive, got %d", d.Model, d.ExpectedDimensions)
		}
		if len(d.ValidLayers) == 0 {
			return nil, fmt.Errorf("probe %q has no valid layers", d.Model)
		}
		for _, l := range d.ValidLayers {
			if l < 0 {
				return nil, fmt.Errorf("probe %q: layer must be non-negative, got %d", d.Model, l)
			}
		}
		switch d.Contract {
		case "":
			d.Contract = ContractDelta
		case ContractDelta, ContractConcat:
		default:
			return nil, fmt.Errorf("probe %q: unknown activation contract %q", d.Model, d.Contract)
		}

		key := catalogKey{model: d.Model, probeType: d.ProbeType}
		if _, exists := c.index[key]; exists {
			return nil, fmt.Errorf("duplicate probe descriptor for model %q probe_type %q", d.Model, d.ProbeType)
		}

		layers := make([]int, len(d.ValidLayers))
		copy(layers, d.ValidLayers)
		sort.Ints(layers)
		d.ValidLayers = layers

		c.index[key] = len(c.descriptors)
		c.descriptors = append(c.descriptors, d)
	}

	return c, nil
}

// List 按声明顺序返回全部探针描述
func (c *Catalog) List() []Descriptor {
	result := make([]Descriptor, len(c.descriptors))
	copy(result, c.descriptors)
	return result
}

// Lookup 精确匹配 (model, probe_type)，大小写敏感
func (c *Catalog) Lookup(model, probeType string) (Descriptor, error) {
	i, ok := c.index[catalogKey{model: model, probeType: probeType}]
	if !ok {
		return Descriptor{}, &UnknownProbeError{Model: model, ProbeType: probeType}
	}
	return c.descriptors[i], nil
}

// ValidateLayer 检查层号是否在描述的有效层集合中
func (c *Catalog) ValidateLayer(d Descriptor, layer int) error {
	if !d.HasLayer(layer) {
		return &InvalidLayerError{
			Model:       d.Model,
			ProbeType:   d.ProbeType,
			Layer:       layer,
			ValidLayers: d.ValidLayers,
		}
	}
	return nil
}
