package types

// DeploymentParams is the resolved parameter set for one deployment run.
// Created once from the model-size argument and never mutated afterwards.
type DeploymentParams struct {
	// Model size identifier exactly as given on the command line.
	// example: large-v3
	ModelSize string `json:"model_size" yaml:"model_size" toml:"model_size" example:"large-v3"`
	// Number of mel filter-bank channels the acoustic model expects.
	// example: 128
	NMels int `json:"n_mels" yaml:"n_mels" toml:"n_mels" example:"128"`
	// Disable padding of the audio window before feature extraction.
	// example: false
	ZeroPad bool `json:"zero_pad" yaml:"zero_pad" toml:"zero_pad" example:"false"`
	// Path to the pre-built engine artifact for this model size.
	// example: /workspace/assets/large-v3/tllm
	EngineDir string `json:"engine_dir" yaml:"engine_dir" toml:"engine_dir" example:"/workspace/assets/large-v3/tllm"`
	// Root of the Triton model repository the server is pointed at.
	// example: /triton_models
	ModelRepo string `json:"model_repo" yaml:"model_repo" toml:"model_repo" example:"/triton_models"`
	// Maximum batch size written into the Triton configs.
	// example: 8
	MaxBatchSize int `json:"triton_max_batch_size" yaml:"triton_max_batch_size" toml:"triton_max_batch_size" example:"8"`
	// Dynamic-batching queue delay written into the Triton configs.
	// example: 100
	MaxQueueDelayMicroseconds int `json:"max_queue_delay_microseconds" yaml:"max_queue_delay_microseconds" toml:"max_queue_delay_microseconds" example:"100"`
}

// AssetStatus describes one auxiliary asset the deployment depends on.
type AssetStatus struct {
	// Short asset name.
	// example: tokenizer
	Name string `json:"name" example:"tokenizer"`
	// Source URL the asset is fetched from when missing.
	// example: https://raw.githubusercontent.com/openai/whisper/main/whisper/assets/multilingual.tiktoken
	URL string `json:"url" example:"https://raw.githubusercontent.com/openai/whisper/main/whisper/assets/multilingual.tiktoken"`
	// Local path inside the model repository.
	// example: /triton_models/infer_bls/1/multilingual.tiktoken
	Path string `json:"path" example:"/triton_models/infer_bls/1/multilingual.tiktoken"`
	// Whether the file is present on disk.
	// example: true
	Present bool `json:"present" example:"true"`
	// Whether this run downloaded it (false when pre-existing).
	// example: false
	Fetched bool `json:"fetched" example:"false"`
	// Size on disk in bytes, 0 when absent.
	// example: 493869
	SizeBytes int64 `json:"size_bytes" example:"493869"`
}
