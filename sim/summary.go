package sim

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a run for final reporting.
type Summary struct {
	Seed       int64   `json:"seed" yaml:"seed"`
	SimTime    float64 `json:"sim_time_s" yaml:"sim_time_s"`
	Samples    int     `json:"samples" yaml:"samples"`
	Arrivals   int64   `json:"arrivals" yaml:"arrivals"`
	Admitted   int64   `json:"admitted" yaml:"admitted"`
	Completed  int64   `json:"completed" yaml:"completed"`
	Dropped    int64   `json:"dropped" yaml:"dropped"`
	DropRatio  float64 `json:"drop_ratio" yaml:"drop_ratio"`
	PeakLoad   float64 `json:"peak_load" yaml:"peak_load"`
	MeanLoad   float64 `json:"mean_load" yaml:"mean_load"`
	LoadStdDev float64 `json:"load_stddev" yaml:"load_stddev"`
	P95Load    float64 `json:"p95_load" yaml:"p95_load"`

	// Split at the first attack trigger; zero when there is no attack wave.
	AttackWaves          int     `json:"attack_waves" yaml:"attack_waves"`
	AttackStart          float64 `json:"attack_start_s,omitempty" yaml:"attack_start_s,omitempty"`
	MeanLoadBeforeAttack float64 `json:"mean_load_before_attack" yaml:"mean_load_before_attack"`
	MeanLoadAfterAttack  float64 `json:"mean_load_after_attack" yaml:"mean_load_after_attack"`
	DropsBeforeAttack    float64 `json:"drops_before_attack" yaml:"drops_before_attack"`

	ByClass map[TrafficClass]ClassCounts `json:"by_class" yaml:"by_class"`
}

// Summarize computes the run summary from the server counters and the metric series.
func (sim *Simulator) Summarize() Summary {
	byClass := sim.Server.CountsByClass()
	sum := Summary{
		Seed:      sim.config.Seed,
		SimTime:   TicksToSeconds(sim.Clock),
		Samples:   sim.Metrics.Len(),
		Dropped:   sim.Server.DroppedCount(),
		Completed: sim.Server.CompletedCount(),
		ByClass:   byClass,
	}
	for _, c := range byClass {
		sum.Admitted += c.Admitted
	}
	sum.Arrivals = sum.Admitted + sum.Dropped
	if sum.Arrivals > 0 {
		sum.DropRatio = float64(sum.Dropped) / float64(sum.Arrivals)
	}

	loadSeries := sim.Metrics.LoadSeries()
	loads := Values(loadSeries)
	if len(loads) > 0 {
		sum.PeakLoad = slices.Max(loads)
		sum.MeanLoad, sum.LoadStdDev = meanStdDev(loads)
		sorted := slices.Clone(loads)
		sort.Float64s(sorted)
		sum.P95Load = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	if len(sim.Attacks) > 0 {
		at := sim.Attacks[0].At
		sum.AttackWaves = len(sim.Attacks)
		sum.AttackStart = TicksToSeconds(at)
		split := sort.Search(len(loadSeries), func(i int) bool { return loadSeries[i].Time >= at })
		if split > 0 {
			sum.MeanLoadBeforeAttack = stat.Mean(loads[:split], nil)
			drops := sim.Metrics.DropSeries()
			sum.DropsBeforeAttack = drops[split-1].Value
		}
		if split < len(loads) {
			sum.MeanLoadAfterAttack = stat.Mean(loads[split:], nil)
		}
	}
	return sum
}

// meanStdDev returns the mean and sample standard deviation; the deviation of
// a single point is reported as zero rather than NaN.
func meanStdDev(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Print displays the summary as a human-readable block.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Seed                 : %d\n", s.Seed)
	fmt.Fprintf(w, "Simulated Time       : %.1f s (%d samples)\n", s.SimTime, s.Samples)
	fmt.Fprintf(w, "Arrivals             : %d\n", s.Arrivals)
	fmt.Fprintf(w, "Admitted / Completed : %d / %d\n", s.Admitted, s.Completed)
	fmt.Fprintf(w, "Dropped              : %d (%.2f%%)\n", s.Dropped, 100*s.DropRatio)
	fmt.Fprintf(w, "Load peak / mean     : %.1f%% / %.1f%% (stddev %.1f%%, p95 %.1f%%)\n",
		100*s.PeakLoad, 100*s.MeanLoad, 100*s.LoadStdDev, 100*s.P95Load)
	if s.AttackWaves > 0 {
		fmt.Fprintf(w, "Attack Start         : %.1f s (%d waves)\n", s.AttackStart, s.AttackWaves)
		fmt.Fprintf(w, "Mean Load before     : %.1f%%\n", 100*s.MeanLoadBeforeAttack)
		fmt.Fprintf(w, "Mean Load after      : %.1f%%\n", 100*s.MeanLoadAfterAttack)
		fmt.Fprintf(w, "Drops before attack  : %.0f\n", s.DropsBeforeAttack)
	}
	classes := make([]string, 0, len(s.ByClass))
	for class := range s.ByClass {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)
	for _, class := range classes {
		c := s.ByClass[TrafficClass(class)]
		fmt.Fprintf(w, "  %-8s admitted=%d dropped=%d\n", class, c.Admitted, c.Dropped)
	}
}
