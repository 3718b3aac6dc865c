// Package render plans and launches the ffmpeg subprocess that produces the
// exported video. It owns argument construction, stderr progress parsing, and
// exit classification; orchestration and persistence live elsewhere.
package render
