package media

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

const edlMaxTitleLen = 60

// GenerateEDL renders an export plan as a CMX3600 edit decision list. Each
// range becomes one event; record times accumulate so the events lay out
// back to back on the timeline.
func GenerateEDL(plan *ExportPlan, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", sanitizeName(title, edlMaxTitleLen))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	event := 0
	recordOffsetMs := 0
	for _, clip := range plan.Clips {
		for _, r := range clip.Ranges {
			startMs := int(math.Round(r.In * 1000))
			endMs := int(math.Round(r.Out * 1000))
			if endMs <= startMs {
				continue
			}
			event++

			srcIn := msToTimecode(startMs, fps)
			srcOut := msToTimecode(endMs, fps)
			recIn := msToTimecode(recordOffsetMs, fps)
			durationMs := endMs - startMs
			recOut := msToTimecode(recordOffsetMs+durationMs, fps)

			lines = append(lines,
				fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", event, "AX", "V", srcIn, srcOut, recIn, recOut),
				fmt.Sprintf("* FROM CLIP NAME:  %s", clip.Filename),
			)

			recordOffsetMs += durationMs
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

// sanitizeName strips control characters and anything outside a conservative
// filename-safe set, then truncates to maxLen runes.
func sanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	if cleaned == "" {
		cleaned = "Untitled"
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}
