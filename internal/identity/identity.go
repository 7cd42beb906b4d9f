// Package identity generates collision-resistant names for uploaded audio
// objects and the transcription jobs derived from them.
package identity

import (
	"fmt"
	"strings"
	"time"
)

// Filename returns a unique audio object name derived from the current
// wall-clock time.
func Filename() string {
	return FilenameAt(time.Now())
}

// FilenameAt returns audio_recording_<YYYYMMDD>_<HHMMSS>_<microseconds>.wav.
// Microsecond resolution makes sequential names unique in practice.
func FilenameAt(t time.Time) string {
	return fmt.Sprintf("audio_recording_%s_%06d.wav", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

// JobName derives a transcription job name from an audio filename. The
// provider namespace forbids reusing a name, so the name inherits the
// filename's timestamp uniqueness.
func JobName(filename string) string {
	base := strings.TrimSuffix(filename, ".wav")
	return "transcription_" + strings.ReplaceAll(base, "_", "-")
}
