package render

import (
	"regexp"
	"strconv"
)

// ffmpeg writes periodic status lines to stderr of the form
// "frame= 1234 fps= 30 ... time=00:01:23.45 bitrate= ...".
var progressTimePattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// parseProgressTime extracts the current output timestamp in seconds from a
// renderer status line.
func parseProgressTime(line string) (float64, bool) {
	match := progressTimePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}
