package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Upload.Endpoint = "http://127.0.0.1:1/unused"
	cfgVal.Upload.Bucket = "test-bucket"
	cfgVal.Upload.MaxRetries = 1
	cfgVal.Upload.RetryBackoffMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithUploadEndpoint points the test config at a live storage stub.
func WithUploadEndpoint(endpoint, bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.Endpoint = endpoint
		if bucket != "" {
			b.cfg.Upload.Bucket = bucket
		}
	}
}

// WithAPIToken enables bearer authentication on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithProgressWeight overrides the render share of fused export progress.
func WithProgressWeight(weight float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.ProgressWeight = weight
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
