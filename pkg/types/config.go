package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "seqfetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EntrezConfig holds the settings for talking to the E-utilities service.
// Email and APIKey are passed through to every request unmodified.
type EntrezConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the E-utilities root, e.g.
	// "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Database is the target Entrez database (default "nucleotide").
	Database string `json:"database" yaml:"database"`

	// Email identifies the account to NCBI.
	Email string `json:"email" yaml:"email"`

	// APIKey selects the higher rate-limit tier.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Tool is the client name reported to NCBI (default "seqfetch").
	Tool string `json:"tool" yaml:"tool"`
}

// FetchConfig holds the batching, paging, and pacing settings of a download run.
type FetchConfig struct {
	// BatchSize is the maximum number of identifiers registered per session (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// PageSize is the maximum number of records requested per page (default 200).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxAttempts bounds registration and page attempts (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RegisterBackoffStep is the linear backoff step between registration
	// attempts (default 2s: waits 2s, 4s, 6s, 8s).
	RegisterBackoffStep time.Duration `json:"register_backoff_step" yaml:"register_backoff_step"`

	// FetchBackoffBase is the exponential backoff base between page attempts
	// (default 2s: waits 2s, 4s, 8s, 16s).
	FetchBackoffBase time.Duration `json:"fetch_backoff_base" yaml:"fetch_backoff_base"`

	// PageDelay is the pause after each written page (default 150ms).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// BatchDelay is the pause after each batch (default 500ms).
	BatchDelay time.Duration `json:"batch_delay" yaml:"batch_delay"`
}

// Default values for FetchConfig and EntrezConfig.
const (
	DefaultBatchSize           = 500
	DefaultPageSize            = 200
	DefaultMaxAttempts         = 5
	DefaultRegisterBackoffStep = 2 * time.Second
	DefaultFetchBackoffBase    = 2 * time.Second
	DefaultPageDelay           = 150 * time.Millisecond
	DefaultBatchDelay          = 500 * time.Millisecond

	DefaultBaseURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	DefaultDatabase = "nucleotide"
	DefaultTool     = "seqfetch"
)

// DefaultFetchConfig returns the pacing used against NCBI with an API key.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		BatchSize:           DefaultBatchSize,
		PageSize:            DefaultPageSize,
		MaxAttempts:         DefaultMaxAttempts,
		RegisterBackoffStep: DefaultRegisterBackoffStep,
		FetchBackoffBase:    DefaultFetchBackoffBase,
		PageDelay:           DefaultPageDelay,
		BatchDelay:          DefaultBatchDelay,
	}
}

// WithDefaults fills zero-valued fields from DefaultFetchConfig. A negative
// delay or backoff means disabled and is kept as is, so applying
// WithDefaults more than once gives the same result. Use Pause to read a
// duration as the wait it stands for.
func (c FetchConfig) WithDefaults() FetchConfig {
	d := DefaultFetchConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RegisterBackoffStep == 0 {
		c.RegisterBackoffStep = d.RegisterBackoffStep
	}
	if c.FetchBackoffBase == 0 {
		c.FetchBackoffBase = d.FetchBackoffBase
	}
	if c.PageDelay == 0 {
		c.PageDelay = d.PageDelay
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = d.BatchDelay
	}
	return c
}

// Pause returns d as a wait, with a disabled (negative) duration as zero.
func Pause(d time.Duration) time.Duration {
	return max(d, 0)
}

// WithDefaults fills zero-valued fields with the public NCBI endpoint settings.
func (c EntrezConfig) WithDefaults() EntrezConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	return c
}

// RunConfig groups everything a download run needs.
type RunConfig struct {
	Entrez EntrezConfig `json:"entrez" yaml:"entrez"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`

	// InputPath is the newline-delimited accession list.
	InputPath string `json:"input" yaml:"input"`

	// OutputPath is the FASTA file written by the run (overwritten).
	OutputPath string `json:"output" yaml:"output"`
}
