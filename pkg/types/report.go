package types

// ReportResponse is the machine-readable verification report written by --output json.
type ReportResponse struct {
	// Path of the model description that was verified.
	// example: models/cfg/esod/visdrone_yolov5m_lora.yaml
	Path string `json:"path" example:"models/cfg/esod/visdrone_yolov5m_lora.yaml"`
	// One-line summary of the loaded description.
	Description string `json:"description,omitempty"`
	// Whether every check passed.
	// example: true
	Passed bool `json:"passed" example:"true"`
	// Failure kind of the first failing check, empty on success.
	// example: TrainableRatioOutOfRange
	FailureKind string `json:"failure_kind,omitempty" example:"TrainableRatioOutOfRange"`
	// Error message of the first failing check.
	Error string `json:"error,omitempty"`
	// Upper bound on the trainable fraction after freezing.
	// example: 0.1
	Threshold float64 `json:"threshold" example:"0.1"`
	// Bias policy used when freezing.
	// example: none
	BiasMode string `json:"bias_mode" example:"none"`
	// Adapter-augmented modules found in the model.
	Adapters []AdapterModule `json:"adapters"`
	// Parameter counts gathered during the run.
	Params ParamCounts `json:"params"`
	// Fingerprint of the trainable parameter set after freezing.
	// example: 9f86d081884c7d65
	TrainableDigest string `json:"trainable_digest,omitempty" example:"9f86d081884c7d65"`
	// Checks in execution order.
	Checks []CheckResult `json:"checks"`
}

// AdapterModule describes one adapter-augmented module.
type AdapterModule struct {
	// Full dotted module name.
	// example: model.0.conv
	Name string `json:"name" example:"model.0.conv"`
	// Module type.
	// example: lora.Conv2d
	Type string `json:"type" example:"lora.Conv2d"`
	// Adapter rank.
	// example: 4
	Rank int `json:"rank" example:"4"`
	// Number of adapter parameter elements owned by the module.
	// example: 2304
	AdapterParams int64 `json:"adapter_params" example:"2304"`
}

// ParamCounts holds element counts at each stage.
type ParamCounts struct {
	Total            int64   `json:"total"`
	TrainableBefore  int64   `json:"trainable_before"`
	TrainableAfter   int64   `json:"trainable_after"`
	Adapter          int64   `json:"adapter"`
	AdapterTrainable int64   `json:"adapter_trainable"`
	Ratio            float64 `json:"ratio"`
}

// CheckResult is the outcome of one verification step.
type CheckResult struct {
	// example: trainable-ratio
	Name string `json:"name" example:"trainable-ratio"`
	// One of pass, fail.
	// example: pass
	Status string `json:"status" example:"pass"`
	Detail string `json:"detail,omitempty"`
}

// DescriptionEntry is one row of the list command.
type DescriptionEntry struct {
	// example: visdrone_yolov5m_lora
	Name string `json:"name" example:"visdrone_yolov5m_lora"`
	// example: /work/models/cfg/esod/visdrone_yolov5m_lora.yaml
	Path string `json:"path"`
	// Whether the description injects adapters.
	Adapters bool `json:"adapters"`
	// Adapter rank from the lora block.
	Rank int `json:"rank,omitempty"`
	// Load error, if the file could not be parsed.
	Error string `json:"error,omitempty"`
}
