package analysis

import (
	"fmt"
	"testing"
)

func resultWith(name, category string, delayIncrease *float64, level string) Result {
	return Result{
		HasData:   true,
		EventName: name,
		Category:  category,
		VenueName: "Venue",
		Impact:    Impact{DelayIncrease: delayIncrease, Level: level},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if !s.NoData {
		t.Fatal("empty input should yield the NoData sentinel")
	}
	if s.TotalEvents != 0 || len(s.TopEvents) != 0 {
		t.Errorf("NoData summary should be otherwise empty: %+v", s)
	}
}

func TestSummarizeCountsAndPercentages(t *testing.T) {
	results := []Result{
		resultWith("A", "Sports", f64(6), "severe"),
		resultWith("B", "Sports", f64(3), "high"),
		resultWith("C", "Music", f64(0.5), "low"),
		resultWith("D", "Music", nil, "unknown"),
	}
	s := Summarize(results)

	if s.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", s.TotalEvents)
	}
	if s.ImpactLevels["severe"] != 1 || s.ImpactLevels["high"] != 1 ||
		s.ImpactLevels["low"] != 1 || s.ImpactLevels["unknown"] != 1 {
		t.Errorf("level counts wrong: %v", s.ImpactLevels)
	}
	if s.ImpactLevelPcts["severe"] != 25.0 {
		t.Errorf("severe pct = %v, want 25", s.ImpactLevelPcts["severe"])
	}

	// Category averages only over events with a delay increase.
	if got := s.CategoryAvgImpact["Sports"]; got != 4.5 {
		t.Errorf("Sports avg = %v, want 4.5", got)
	}
	if got := s.CategoryAvgImpact["Music"]; got != 0.5 {
		t.Errorf("Music avg = %v, want 0.5 (nil increases excluded)", got)
	}

	// The unknown event has no delay increase and must not be ranked.
	if len(s.TopEvents) != 3 {
		t.Fatalf("got %d top events, want 3", len(s.TopEvents))
	}
	if s.TopEvents[0].EventName != "A" || s.TopEvents[0].DelayIncrease != 6 {
		t.Errorf("top event = %+v, want A with increase 6", s.TopEvents[0])
	}
}

func TestSummarizeTopEventsTruncatedAndStable(t *testing.T) {
	var results []Result
	for i := 0; i < 15; i++ {
		// All the same delay so ordering falls back to input order.
		results = append(results, resultWith(fmt.Sprintf("event-%02d", i), "Sports", f64(2), "moderate"))
	}
	s := Summarize(results)

	if len(s.TopEvents) != 10 {
		t.Fatalf("got %d top events, want 10", len(s.TopEvents))
	}
	for i, te := range s.TopEvents {
		want := fmt.Sprintf("event-%02d", i)
		if te.EventName != want {
			t.Errorf("top event %d = %q, want %q (ties must keep input order)", i, te.EventName, want)
		}
	}
}
