package onlevel

import (
	"fmt"
	"strings"

	"onlevel-reserving/internal/model"
)

// Basis selects how exposure of an origin period is spread over the
// calendar dates whose rate level applies to it.
type Basis string

const (
	// BasisPolicy: policies written uniformly through the period, each in
	// force for one term after its writing date (policy-year origins).
	BasisPolicy Basis = "policy"
	// BasisCalendar: exposure earned uniformly through the period, written
	// over the preceding term (accident or calendar-year origins).
	BasisCalendar Basis = "calendar"
)

func ParseBasis(s string) (Basis, error) {
	switch Basis(strings.ToLower(strings.TrimSpace(s))) {
	case BasisPolicy, "":
		return BasisPolicy, nil
	case BasisCalendar, "accident":
		return BasisCalendar, nil
	default:
		return "", model.ConfigurationError("basis", "unsupported basis %q", s)
	}
}

// kernel is the weight a single origin puts on calendar time: cum is the
// antiderivative of the weight density and [lo, hi] its support, all on the
// decimal-year axis.
type kernel struct {
	cum    func(float64) float64
	lo, hi float64
}

// q is the clipped quadratic max(u,0)²/2, the antiderivative of a ramp.
func q(u float64) float64 {
	if u <= 0 {
		return 0
	}
	return u * u / 2
}

// verticalKernel weights the period [s, e] uniformly: each event is a
// vertical line splitting the period by length.
func verticalKernel(s, e float64) kernel {
	return kernel{
		cum: func(x float64) float64 {
			switch {
			case x <= s:
				return 0
			case x >= e:
				return e - s
			default:
				return x - s
			}
		},
		lo: s,
		hi: e,
	}
}

// policyKernel has density |[x−T, x] ∩ [s, e]|: the share of policies
// written in [s, e] that are in force at x. The density is a trapezoid, so
// its antiderivative is four clipped quadratics.
func policyKernel(s, e, T float64) kernel {
	return kernel{
		cum: func(x float64) float64 {
			return q(x-s) - q(x-s-T) - q(x-e) + q(x-e-T)
		},
		lo: s,
		hi: e + T,
	}
}

// calendarKernel is the policy kernel shifted back one term: exposure earned
// in [s, e] was written in [s−T, e].
func calendarKernel(s, e, T float64) kernel {
	p := policyKernel(s, e, T)
	return kernel{
		cum: func(x float64) float64 { return p.cum(x + T) },
		lo:  s - T,
		hi:  e,
	}
}

func newKernel(vertical bool, basis Basis, s, e, T float64) (kernel, error) {
	if vertical {
		return verticalKernel(s, e), nil
	}
	switch basis {
	case BasisPolicy:
		return policyKernel(s, e, T), nil
	case BasisCalendar:
		return calendarKernel(s, e, T), nil
	default:
		return kernel{}, fmt.Errorf("unknown basis %q", basis)
	}
}
