package ranking

import (
	"fmt"
	"strings"
)

type Decision string

const (
	Accepted    Decision = "Accepted"
	Pending     Decision = "Pending"
	Shortlisted Decision = "Shortlisted"
)

const (
	acceptedThreshold = 85
	pendingThreshold  = 70
)

// Decisions lists every decision in display order.
var Decisions = []Decision{Accepted, Pending, Shortlisted}

// DecisionFor maps an aggregate score to the decision assigned by the matching algorithm.
func DecisionFor(total float64) Decision {
	switch {
	case total >= acceptedThreshold:
		return Accepted
	case total >= pendingThreshold:
		return Pending
	default:
		return Shortlisted
	}
}

// ParseDecision accepts a decision name in any letter case.
func ParseDecision(s string) (Decision, error) {
	trimmed := strings.TrimSpace(s)
	for _, d := range Decisions {
		if strings.EqualFold(string(d), trimmed) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

func (d Decision) String() string {
	return string(d)
}

func (d Decision) Valid() bool {
	for _, known := range Decisions {
		if d == known {
			return true
		}
	}
	return false
}
