package model

import (
	"fmt"
	"strings"
)

// Format describes how a leaderboard renders a raw score.
type Format int

const (
	FormatValue Format = iota
	FormatTimeFrames
	FormatTimeSecs
	FormatTimeMillisecs
	FormatScore
	FormatOther
)

const (
	framesPerSecond = 60
	framesPerMinute = framesPerSecond * 60
	secondsPerMin   = 60
	centisPerSecond = 100
	centisPerMinute = centisPerSecond * 60
)

var formatNames = map[Format]string{
	FormatValue:         "VALUE",
	FormatTimeFrames:    "TIME",
	FormatTimeSecs:      "TIMESECS",
	FormatTimeMillisecs: "MILLISECS",
	FormatScore:         "SCORE",
	FormatOther:         "OTHER",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return formatNames[FormatValue]
}

// ParseFormat maps the server's format name to a Format. Unknown names fall
// back to FormatValue.
func ParseFormat(s string) Format {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TIME", "FRAMES":
		return FormatTimeFrames
	case "TIMESECS", "SECS":
		return FormatTimeSecs
	case "MILLISECS", "CENTISECS":
		return FormatTimeMillisecs
	case "SCORE", "POINTS":
		return FormatScore
	case "OTHER":
		return FormatOther
	default:
		return FormatValue
	}
}

// FormatScore renders a raw score.
func (f Format) FormatScore(score int) string {
	switch f {
	case FormatTimeFrames:
		mins := score / framesPerMinute
		secs := (score % framesPerMinute) / framesPerSecond
		centis := (score % framesPerSecond) * centisPerSecond / framesPerSecond
		return fmt.Sprintf("%02d:%02d.%02d", mins, secs, centis)
	case FormatTimeSecs:
		return fmt.Sprintf("%02d:%02d", score/secondsPerMin, score%secondsPerMin)
	case FormatTimeMillisecs:
		mins := score / centisPerMinute
		secs := (score % centisPerMinute) / centisPerSecond
		return fmt.Sprintf("%02d:%02d.%02d", mins, secs, score%centisPerSecond)
	case FormatScore:
		return fmt.Sprintf("%06d Points", score)
	case FormatOther:
		return fmt.Sprintf("%06d", score)
	default:
		return fmt.Sprintf("%01d", score)
	}
}
