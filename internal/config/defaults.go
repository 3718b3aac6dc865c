package config

const (
	defaultDataDir              = "~/.local/share/clipforge/data"
	defaultWorkDir              = "~/.local/share/clipforge/work"
	defaultLogDir               = "~/.local/share/clipforge/logs"
	defaultAPIBind              = "127.0.0.1:7519"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultRenderWeight         = 0.8
	defaultRenderTimeoutMinutes = 120
	defaultUploadRetries        = 3
	defaultUploadBackoffMS      = 500
	defaultUploadTimeoutMinutes = 30
	defaultUploadBucket         = "rendered-videos"
	defaultNtfyTimeoutSeconds   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Render: Render{
			ProgressWeight: defaultRenderWeight,
			TimeoutMinutes: defaultRenderTimeoutMinutes,
		},
		Upload: Upload{
			Bucket:         defaultUploadBucket,
			MaxRetries:     defaultUploadRetries,
			RetryBackoffMS: defaultUploadBackoffMS,
			TimeoutMinutes: defaultUploadTimeoutMinutes,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
