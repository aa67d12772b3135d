package align

import "fmt"

// ppProbability maps a posterior-probability character to a probability, per
// spec.md §4.6: '0' means 0.25 (not 0.05), '1'-'9' step by 0.10 starting at
// 0.10, and '*' means 0.975.
var ppProbability = map[byte]float64{
	'0': 0.25,
	'1': 0.10,
	'2': 0.20,
	'3': 0.30,
	'4': 0.40,
	'5': 0.50,
	'6': 0.60,
	'7': 0.70,
	'8': 0.80,
	'9': 0.90,
	'*': 0.975,
}

// decodePP converts a posterior-probability character to a probability.
// Characters outside 0-9/* are a configuration error per spec.md §9's
// resolution of that open question, not a silent default.
func decodePP(c byte) (float64, error) {
	p, ok := ppProbability[c]
	if !ok {
		return 0, fmt.Errorf("align: invalid posterior-probability character %q", c)
	}
	return p, nil
}
