package grading

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// numericStrategy supports exact string match or numeric tolerance via the key.
// Examples:
//
//	Key: ["3.14159", "tol=0.01"]   // absolute tolerance
//	Key: ["100", "reltol=0.05"]    // 5% relative tolerance
//
// Without a tolerance the values must be numerically equal ("2.50" == "2.5").
type numericStrategy struct{}

func (numericStrategy) Correct(_ context.Context, a Answer) (bool, error) {
	if len(a.Key) == 0 {
		return false, nil
	}
	given := strings.TrimSpace(a.Given)
	target := strings.TrimSpace(a.Key[0])
	if given == target {
		return true, nil
	}

	rv, rOK := parseFloatLoose(given)
	tv, tOK := parseFloatLoose(target)
	if !rOK {
		return false, nil
	}
	if !tOK {
		return false, fmt.Errorf("numeric key %q is not a number", target)
	}

	absTol, relTol := parseTolerances(a.Key[1:])
	diff := math.Abs(rv - tv)
	if absTol < 0 && relTol < 0 {
		return diff == 0, nil
	}
	if absTol >= 0 && diff <= absTol {
		return true, nil
	}
	return relTol >= 0 && diff <= relTol*math.Abs(tv), nil
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseTolerances(keys []string) (absTol float64, relTol float64) {
	absTol, relTol = -1, -1
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if strings.HasPrefix(k, "tol=") {
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "tol="), 64); err == nil {
				absTol = v
			}
		}
		if strings.HasPrefix(k, "reltol=") {
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "reltol="), 64); err == nil {
				relTol = v
			}
		}
	}
	return
}
