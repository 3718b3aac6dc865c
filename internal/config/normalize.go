package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.ProgressWeight <= 0 || c.Render.ProgressWeight >= 1 {
		c.Render.ProgressWeight = defaultRenderWeight
	}
	if c.Render.TimeoutMinutes <= 0 {
		c.Render.TimeoutMinutes = defaultRenderTimeoutMinutes
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.Endpoint = strings.TrimRight(strings.TrimSpace(c.Upload.Endpoint), "/")
	c.Upload.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.PublicBaseURL), "/")
	if strings.TrimSpace(c.Upload.Bucket) == "" {
		c.Upload.Bucket = defaultUploadBucket
	}
	if c.Upload.MaxRetries < 0 {
		c.Upload.MaxRetries = defaultUploadRetries
	}
	if c.Upload.RetryBackoffMS <= 0 {
		c.Upload.RetryBackoffMS = defaultUploadBackoffMS
	}
	if c.Upload.TimeoutMinutes <= 0 {
		c.Upload.TimeoutMinutes = defaultUploadTimeoutMinutes
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
