/*
allocator.go - Relative grade allocation under fixed quotas

PURPOSE:
  Normalizes overall scores within peer groups and assigns letter grades
  under a fixed quota distribution.

ALGORITHM:
  1. Normalize: z-score per member against the group mean/stddev. Groups of
     size 1 get z=0 (nothing to normalize against).
  2. Sort descending by (overall score, z-score).
  3. Quota allocation: integer headcounts via floor(groupSize x ratio) per
     grade in the fixed order S, A+, A, B+, B, C, D. Any headcount shortfall
     from rounding is added to the B bucket. Grades are assigned by walking
     the buckets over the sorted list.

The remainder-to-B policy is a deliberate business rule; tests assert it
literally. Do not redistribute the rounding remainder elsewhere.
*/
package evaluation

import (
	"math"
	"sort"
)

// =============================================================================
// QUOTA DISTRIBUTION
// =============================================================================

// QuotaDistribution maps each grade to its percentage of a peer group.
// Percentages must sum to 100.
type QuotaDistribution struct {
	Percent map[Grade]float64
}

// DefaultQuota returns the standard distribution:
// S=10%, A+=10%, A=20%, B+=20%, B=30%, C=10%, D=0%.
func DefaultQuota() QuotaDistribution {
	return QuotaDistribution{Percent: map[Grade]float64{
		GradeS:     10,
		GradeAPlus: 10,
		GradeA:     20,
		GradeBPlus: 20,
		GradeB:     30,
		GradeC:     10,
		GradeD:     0,
	}}
}

// Validate checks that the percentages cover exactly 100%.
func (q QuotaDistribution) Validate() error {
	total := 0.0
	for _, g := range AllGrades() {
		p := q.Percent[g]
		if p < 0 {
			return &ValidationError{Field: "quota", Reason: "negative ratio for grade " + string(g)}
		}
		total += p
	}
	if math.Abs(total-100) > 1e-9 {
		return &ValidationError{Field: "quota", Reason: "ratios must sum to 100"}
	}
	return nil
}

// Headcounts computes the per-grade headcounts for a group of the given
// size: floor(size x ratio) per grade in fixed order, remainder into B.
func (q QuotaDistribution) Headcounts(size int) map[Grade]int {
	counts := make(map[Grade]int, len(gradeRanks))
	assigned := 0
	for _, g := range AllGrades() {
		n := int(math.Floor(float64(size) * q.Percent[g] / 100))
		counts[g] = n
		assigned += n
	}
	if shortfall := size - assigned; shortfall > 0 {
		counts[GradeB] += shortfall
	}
	return counts
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocator assigns relative grades within peer groups.
type Allocator struct {
	quota QuotaDistribution
}

func NewAllocator(quota QuotaDistribution) (*Allocator, error) {
	if err := quota.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{quota: quota}, nil
}

// Allocate assigns RelativeGrade, ZScore, and GradeDifference to every
// evaluation in one peer group, in place. The group is every evaluation
// sharing a grouping key; the caller does the grouping.
func (a *Allocator) Allocate(group []*ComprehensiveEvaluation) {
	if len(group) == 0 {
		return
	}

	normalize(group)

	sorted := make([]*ComprehensiveEvaluation, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := sorted[i].OverallScore.Cmp(sorted[j].OverallScore)
		if cmp != 0 {
			return cmp > 0
		}
		// Tie-break by normalized score.
		return sorted[i].ZScore > sorted[j].ZScore
	})

	counts := a.quota.Headcounts(len(sorted))

	idx := 0
	for _, g := range AllGrades() {
		for n := 0; n < counts[g] && idx < len(sorted); n++ {
			ev := sorted[idx]
			ev.RelativeGrade = g
			ev.GradeDifference = g.Rank() - ev.ManagerGrade.Rank()
			idx++
		}
	}
}

// AllocateAll groups evaluations by GroupKey and allocates each group.
func (a *Allocator) AllocateAll(evals []*ComprehensiveEvaluation) {
	groups := make(map[string][]*ComprehensiveEvaluation)
	for _, ev := range evals {
		groups[ev.GroupKey] = append(groups[ev.GroupKey], ev)
	}
	for _, group := range groups {
		a.Allocate(group)
	}
}

// normalize computes each member's z-score against the group distribution.
func normalize(group []*ComprehensiveEvaluation) {
	if len(group) <= 1 {
		for _, ev := range group {
			ev.ZScore = 0
		}
		return
	}

	scores := make([]float64, len(group))
	for i, ev := range group {
		scores[i], _ = ev.OverallScore.Float64()
	}
	mean, stddev := meanStddev(scores)

	for i, ev := range group {
		if stddev == 0 {
			ev.ZScore = 0
			continue
		}
		ev.ZScore = (scores[i] - mean) / stddev
	}
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
