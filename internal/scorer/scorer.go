// Package scorer rolls up a submission's per-test RunResults into an
// overall score out of 100, grounded on
// original_source/coderunners/scoring.py.
package scorer

import (
	"strconv"

	"gopkg.in/inf.v0"

	"judgeengine/internal/model"
)

// Scorer reduces a submission's test results to a single score.
type Scorer interface {
	Score(results []model.RunResult) float64
}

// FromRequest picks PerTestScorer when no test groups were declared, or
// SubtaskScorer otherwise, mirroring AbstractScorer.from_request.
func FromRequest(groups []model.TestGroup) Scorer {
	if len(groups) > 0 {
		return SubtaskScorer{Groups: groups}
	}
	return PerTestScorer{}
}

// PerTestScorer averages every test's own score. Grounded on
// scoring.py's PerTestScorer.
type PerTestScorer struct{}

func (PerTestScorer) Score(results []model.RunResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := new(inf.Dec)
	for _, r := range results {
		sum.Add(sum, decFromFloat(r.Score))
	}
	avg := new(inf.Dec).QuoRound(sum, decFromFloat(float64(len(results))), 10, inf.RoundHalfEven)
	f, _ := avg.Float64()
	return f
}

// SubtaskScorer scores each TestGroup independently and sums the results.
// A group set up with PointsPerTest pays out per passing test; a group set
// up with Points is all-or-nothing, awarding Points only if every test in
// the group is OK. Grounded on scoring.py's SubtaskScorer.
type SubtaskScorer struct {
	Groups []model.TestGroup
}

func (s SubtaskScorer) Score(results []model.RunResult) float64 {
	total := new(inf.Dec)
	offset := 0
	for _, group := range s.Groups {
		end := offset + group.Count
		if end > len(results) {
			end = len(results)
		}
		slice := results[offset:end]
		offset = end

		passCount := 0
		allPass := len(slice) > 0
		for _, r := range slice {
			if r.Status == model.StatusOK {
				passCount++
			} else {
				allPass = false
			}
		}

		if group.PointsPerTest != 0 {
			total.Add(total, decFromFloat(group.PointsPerTest*float64(passCount)))
		}
		if group.Points != 0 && allPass {
			total.Add(total, decFromFloat(group.Points))
		}
	}
	f, _ := total.Float64()
	return f
}

// decFromFloat goes through the float's shortest decimal text
// representation rather than inf.NewDec's binary-fraction constructor, so
// that ordinary scores like 33.333333 round-trip exactly instead of picking
// up binary-floating-point noise.
func decFromFloat(f float64) *inf.Dec {
	d := new(inf.Dec)
	d.SetString(strconv.FormatFloat(f, 'f', -1, 64))
	return d
}
