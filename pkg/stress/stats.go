package stress

import (
	"fmt"
	"math"
	"time"
)

// DefaultThreshold is the good/bad ratio a run with failures must exceed
// to pass.
const DefaultThreshold = 0.05

// Stats summarizes a stress run. Latencies are in milliseconds and cover
// good probes only; they are meaningless when Defined is false.
type Stats struct {
	Good    int
	Bad     int
	Defined bool
	MinMS   float64
	MaxMS   float64
	MeanMS  float64
	StdDev  float64
}

// Aggregate reduces probe results. It runs after every probe has finished.
func Aggregate(results []Result) Stats {
	var s Stats
	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Good {
			s.Bad++
			continue
		}
		s.Good++
		latencies = append(latencies, float64(r.Latency)/float64(time.Millisecond))
	}
	if len(latencies) == 0 {
		return s
	}

	s.Defined = true
	s.MinMS, s.MaxMS = latencies[0], latencies[0]
	var sum float64
	for _, l := range latencies {
		sum += l
		s.MinMS = math.Min(s.MinMS, l)
		s.MaxMS = math.Max(s.MaxMS, l)
	}
	n := float64(len(latencies))
	s.MeanMS = sum / n

	var sq float64
	for _, l := range latencies {
		d := l - s.MeanMS
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / n)

	return s
}

func (s Stats) String() string {
	if !s.Defined {
		return fmt.Sprintf("good=%d bad=%d latency=n/a", s.Good, s.Bad)
	}
	return fmt.Sprintf("good=%d bad=%d min=%.2fms max=%.2fms mean=%.2fms stddev=%.2fms",
		s.Good, s.Bad, s.MinMS, s.MaxMS, s.MeanMS, s.StdDev)
}

// Verdict passes a run without failures, or one whose good/bad ratio
// exceeds threshold. A run without a single good probe always fails.
func Verdict(s Stats, threshold float64) (bool, string) {
	if s.Good == 0 {
		return false, fmt.Sprintf("no successful samples (%d failed)", s.Bad)
	}
	if s.Bad == 0 {
		return true, s.String()
	}
	ratio := float64(s.Good) / float64(s.Bad)
	if ratio > threshold {
		return true, s.String()
	}
	return false, fmt.Sprintf("too many failed queries (good/bad %.3f <= %g): %s", ratio, threshold, s)
}
