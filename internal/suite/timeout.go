package suite

import (
	"fmt"
	"regexp"
	"time"
)

// Defaults applied when the timeout argument omits the hard or kill value.
// The hard default is a grace on top of soft, matching the documented
// T_SOFT[,T_HARD[,T_KILL]] argument format.
const (
	DefaultHardGrace = 60 * time.Second
	DefaultKill      = 10 * time.Second
)

// Timeout is the three-level escalation for one run. Soft and Hard are
// measured from dispatch; Kill is the grace measured from hard expiry.
type Timeout struct {
	Soft time.Duration
	Hard time.Duration
	Kill time.Duration
}

var timeoutRe = regexp.MustCompile(`^(\d+)(?:,(\d+))?(?:,(\d+))?$`)

// ParseTimeout parses the T_SOFT[,T_HARD[,T_KILL]] argument, all values in
// seconds. Omitted values use the defaults.
func ParseTimeout(argstr string) (*Timeout, error) {
	m := timeoutRe.FindStringSubmatch(argstr)
	if m == nil {
		return nil, fmt.Errorf("invalid timeout value '%s', expected T_SOFT[,T_HARD[,T_KILL]] in seconds", argstr)
	}

	seconds := func(s string) time.Duration {
		var n int
		fmt.Sscanf(s, "%d", &n)
		return time.Duration(n) * time.Second
	}

	t := &Timeout{Soft: seconds(m[1])}
	if m[2] != "" {
		t.Hard = seconds(m[2])
	} else {
		t.Hard = t.Soft + DefaultHardGrace
	}
	if m[3] != "" {
		t.Kill = seconds(m[3])
	} else {
		t.Kill = DefaultKill
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate enforces that all values are strictly positive and soft does not
// exceed hard.
func (t *Timeout) Validate() error {
	if t.Soft <= 0 || t.Hard <= 0 || t.Kill <= 0 {
		return fmt.Errorf("timeout values must be strictly positive")
	}
	if t.Soft > t.Hard {
		return fmt.Errorf("soft timeout (%s) must not exceed hard timeout (%s)", t.Soft, t.Hard)
	}
	return nil
}
