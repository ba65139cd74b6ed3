package clock

import "time"

// NowFunc returns the current time; tests override it for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
