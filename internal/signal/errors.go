package signal

import "errors"

var (
	errInvalidOrdering = errors.New("signal: entry/stop/target ordering invariant violated")
	errZeroRisk        = errors.New("signal: zero risk distance between entry and stop")
	errInsufficientRR  = errors.New("signal: reward:risk below minimum")
	errStopTooWide     = errors.New("signal: stop distance exceeds max stop-loss percentage")
)
