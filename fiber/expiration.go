package fiber

import "github.com/ProgrammingAlternatives/fiberparty/scheduler"

// ExpirationTime is the priority token of pending work: a point on the
// scheduler clock (milliseconds) by which the work should have committed.
// Lower nonzero values are more urgent. NoWork means nothing is pending and
// must be checked for explicitly before any ordering comparison.
type ExpirationTime int64

const (
	NoWork ExpirationTime = 0
	// Sync is more urgent than any clock-derived expiration and never
	// yields.
	Sync ExpirationTime = 1
)

// expirationTimeOffset keeps clock-derived expirations clear of the NoWork
// and Sync sentinels.
const expirationTimeOffset = 10

func msToExpirationTime(ms int64) ExpirationTime {
	return ExpirationTime(ms + expirationTimeOffset)
}

func ceiling(t ExpirationTime, unit int64) ExpirationTime {
	return ExpirationTime(((int64(t)/unit)+1) * unit)
}

// computeAsyncExpiration buckets ordinary updates into 250ms windows so
// that updates requested close together collapse into one render pass.
func computeAsyncExpiration(currentTime int64) ExpirationTime {
	return ceiling(msToExpirationTime(currentTime)+5000, 250)
}

// computeInteractiveExpiration buckets user-blocking updates into much
// tighter 25ms windows.
func computeInteractiveExpiration(currentTime int64) ExpirationTime {
	return ceiling(msToExpirationTime(currentTime)+150, 25)
}

// mostUrgent returns the more urgent of two expirations, ignoring NoWork.
func mostUrgent(a, b ExpirationTime) ExpirationTime {
	if a == NoWork {
		return b
	}
	if b == NoWork {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// atLeastAsUrgent reports whether pending work at expiration a must be
// included in a render servicing expiration b.
func atLeastAsUrgent(a, b ExpirationTime) bool {
	return a != NoWork && a <= b
}

func priorityForExpiration(currentTime int64, exp ExpirationTime) scheduler.Priority {
	if exp == Sync {
		return scheduler.ImmediatePriority
	}
	msUntil := int64(exp) - expirationTimeOffset - currentTime
	switch {
	case msUntil <= 0:
		return scheduler.ImmediatePriority
	case msUntil <= 500:
		return scheduler.UserBlockingPriority
	case msUntil <= 6000:
		return scheduler.NormalPriority
	default:
		return scheduler.LowPriority
	}
}
