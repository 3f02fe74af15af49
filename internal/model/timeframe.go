package model

import (
	"fmt"
	"strings"
)

// Timeframe is a candle interval from the fixed set the chart offers.
type Timeframe int

const (
	TF5s  Timeframe = 5
	TF1m  Timeframe = 60
	TF5m  Timeframe = 300
	TF15m Timeframe = 900
	TF30m Timeframe = 1800
	TF1H  Timeframe = 3600
	TF4H  Timeframe = 14400
	TF1D  Timeframe = 86400
)

var timeframeLabels = []struct {
	tf    Timeframe
	label string
}{
	{TF5s, "5s"}, {TF1m, "1m"}, {TF5m, "5m"}, {TF15m, "15m"},
	{TF30m, "30m"}, {TF1H, "1H"}, {TF4H, "4H"}, {TF1D, "1D"},
}

// Timeframes returns every supported timeframe in ascending order.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframeLabels))
	for i, e := range timeframeLabels {
		out[i] = e.tf
	}
	return out
}

// Seconds returns the bucket width in seconds.
func (tf Timeframe) Seconds() int64 { return int64(tf) }

func (tf Timeframe) String() string {
	for _, e := range timeframeLabels {
		if e.tf == tf {
			return e.label
		}
	}
	return fmt.Sprintf("%ds", int(tf))
}

// ParseTimeframe accepts a label ("1m", "4H", case-insensitive) and returns
// the matching timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	for _, e := range timeframeLabels {
		if strings.EqualFold(e.label, s) {
			return e.tf, nil
		}
	}
	return 0, fmt.Errorf("unsupported timeframe %q", s)
}
