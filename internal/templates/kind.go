package templates

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind is the state transition an alert reports.
type Kind int

const (
	Triggered Kind = iota
	Resolved
)

// String returns the wire token: TRIGGERED or RESOLVED.
func (k Kind) String() string {
	switch k {
	case Triggered:
		return "TRIGGERED"
	case Resolved:
		return "RESOLVED"
	default:
		return "UNKNOWN"
	}
}

// ParseKind accepts TRIGGERED or RESOLVED in any letter case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRIGGERED":
		return Triggered, nil
	case "RESOLVED":
		return Resolved, nil
	default:
		return 0, errors.Newf("unknown alert kind %q: want TRIGGERED|RESOLVED", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != Triggered && k != Resolved {
		return nil, errors.Newf("invalid alert kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
