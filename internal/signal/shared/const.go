package shared

import "time"

const (
	SamplingInterval = 500 * time.Millisecond // one TOL row per half-second (1 s Hann window, 50% overlap)
	BackgroundWindow = 10 * time.Minute
	LoudThresholdDb  = 10.0
	GuardRows        = 2
)
