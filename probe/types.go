package probe

// Contract 激活向量组合方式：探针以哪种形式消费两个激活向量
type Contract string

const (
	// ContractDelta feeds the elementwise difference primary-text to the
	// probe. Each vector must have exactly ExpectedDimensions values.
	ContractDelta Contract = "delta"
	// ContractConcat feeds primary followed by text as one vector; the
	// trained input width is twice ExpectedDimensions.
	ContractConcat Contract = "concat"
)

// Descriptor 一个可服务探针的身份信息
type Descriptor struct {
	Model              string   `json:"model" yaml:"model"`
	ProbeType          string   `json:"probe_type" yaml:"probe_type"`
	ValidLayers        []int    `json:"layers" yaml:"layers"`
	ExpectedDimensions int      `json:"expected_dimensions" yaml:"expected_dimensions"`
	Contract           Contract `json:"-" yaml:"contract"`
}

// InputWidth 返回探针训练时的输入向量宽度
func (d Descriptor) InputWidth() int {
	if d.Contract == ContractConcat {
		return 2 * d.ExpectedDimensions
	}
	return d.ExpectedDimensions
}

// HasLayer 检查层号是否在有效层集合中
func (d Descriptor) HasLayer(layer int) bool {
	for _, l := range d.ValidLayers {
		if l == layer {
			return true
		}
	}
	return false
}

// Request 单次预测请求
type Request struct {
	Model              string    `json:"model"`
	ProbeType          string    `json:"probe_type"`
	Layer              int       `json:"layer"`
	PrimaryActivations []float64 `json:"primary_activations"`
	TextActivations    []float64 `json:"text_activations"`
}

// Result 单次预测结果
type Result struct {
	Model                string  `json:"model"`
	ProbeType            string  `json:"probe_type"`
	Layer                int     `json:"layer"`
	PredictedProbability float64 `json:"predicted_probability"`
}

// Weights 一个 (model, probe_type, layer) 三元组的线性探针参数
type Weights struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}
