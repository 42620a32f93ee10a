package segments

import (
	"fmt"
	"strings"
)

// CueSheet serializes a segment list into a conventional audio cue sheet.
// The layout is an external compatibility contract: a FILE header line and
// per track TRACK/TITLE/INDEX blocks, timestamps as MM:SS:FF where FF is a
// 75ths-of-a-second frame count.
func CueSheet(fileName string, segs []Segment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FILE %q MP3\n", fileName))
	for i, seg := range segs {
		sb.WriteString(fmt.Sprintf("  TRACK %02d AUDIO\n", i+1))
		sb.WriteString(fmt.Sprintf("    TITLE %q\n", seg.Label))
		sb.WriteString(fmt.Sprintf("    INDEX 01 %s\n", cueTime(seg.StartTime)))
	}
	return sb.String()
}

func cueTime(startTime float64) string {
	minutes := int(startTime) / 60
	seconds := int(startTime) % 60
	frames := int((startTime - float64(int(startTime))) * 75)
	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames)
}
