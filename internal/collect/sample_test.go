package collect

import "testing"

func TestPatternFor(t *testing.T) {
	cases := []struct {
		category string
		want     samplePattern
	}{
		{"Sports", samplePatterns["Sports"]},
		{"Sports/Fitness", samplePatterns["Sports"]},
		{"Concerts & Music", samplePatterns["Music"]},
		{"Festivals & Special Events", samplePatterns["Festival"]},
		{"Arts & Culture", defaultPattern},
		{"", defaultPattern},
	}
	for _, tc := range cases {
		if got := patternFor(tc.category); got != tc.want {
			t.Errorf("patternFor(%q) picked the wrong pattern", tc.category)
		}
	}
}

func TestSamplePatternsShapePlausibly(t *testing.T) {
	// During and after ranges must sit above before: sample data exists to
	// exercise the correlation, which needs visible event impact.
	for name, p := range samplePatterns {
		if p.duringDelay[0] <= p.beforeDelay[0] {
			t.Errorf("%s: during delay floor %v not above before floor %v", name, p.duringDelay[0], p.beforeDelay[0])
		}
		if p.duringSpeed[1] >= p.beforeSpeed[1] {
			t.Errorf("%s: during speed ceiling %v not below before ceiling %v", name, p.duringSpeed[1], p.beforeSpeed[1])
		}
	}
}
