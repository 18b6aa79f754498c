package build

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Severe is called on conditions that indicate a corrupted store or a
// violated invariant that the caller did not ask to have checked (a sanity
// check, not a recoverable error). In a debug build it panics immediately;
// in a standard build it logs at error level and lets the caller continue,
// so malformed input that slips past validation degrades rather than
// crashes the process.
func Severe(v interface{}) {
	msg := fmt.Sprint(v)
	if DEBUG {
		panic(msg)
	}
	logrus.WithField("release", Release).Error("severe: " + msg)
}

// Critical is an alias of Severe kept for call sites that want to make the
// "this should never happen" intent explicit in the name.
func Critical(v interface{}) {
	Severe(v)
}
