package checker

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"judgeengine/internal/model"
)

var whitespaceSplit = regexp.MustCompile(`\s+`)

// tokenEquality splits stdout and target (and each target file against its
// matching output file) into tokens and compares them positionally: nan/inf
// tokens compare case-insensitively as bare words, numeric tokens compare
// within floatPrecision, everything else compares as an exact trimmed
// string. Grounded on checkers.py's TokenEquality.is_correct.
type tokenEquality struct {
	floatPrecision float64
	delimiter      *string
}

func (c tokenEquality) Check(_ context.Context, test model.TestCase, result model.RunResult) (model.Status, float64, *string) {
	output := ""
	if result.Outputs != nil {
		output = *result.Outputs
	}
	if !c.isCorrect(output, test.Target) {
		return model.StatusWA, 0, nil
	}
	for name, want := range test.TargetFiles {
		got, ok := result.OutputFiles[name]
		if !ok || !c.isCorrect(got, want) {
			return model.StatusWA, 0, nil
		}
	}
	if !assetsMatch(result.OutputAssets, test.TargetAssets) {
		return model.StatusWA, 0, nil
	}
	return model.StatusOK, 100, nil
}

func (c tokenEquality) split(s string) []string {
	if c.delimiter != nil && *c.delimiter != "" {
		return strings.Split(s, *c.delimiter)
	}
	return whitespaceSplit.Split(strings.TrimSpace(s), -1)
}

func (c tokenEquality) isCorrect(output, target string) bool {
	outTokens := c.split(output)
	targetTokens := c.split(target)
	if len(outTokens) != len(targetTokens) {
		return false
	}
	for i, o := range outTokens {
		t := targetTokens[i]
		if !tokenMatches(o, t, c.floatPrecision) {
			return false
		}
	}
	return true
}

var specialFloatWords = map[string]bool{"nan": true, "inf": true}

func tokenMatches(o, t string, precision float64) bool {
	lo, lt := strings.ToLower(strings.TrimSpace(o)), strings.ToLower(strings.TrimSpace(t))
	if lo == lt && specialFloatWords[lo] {
		return true
	}
	of, oErr := strconv.ParseFloat(strings.TrimSpace(o), 64)
	tf, tErr := strconv.ParseFloat(strings.TrimSpace(t), 64)
	if oErr == nil && tErr == nil {
		diff := math.Abs(of - tf)
		return !math.IsNaN(diff) && diff <= precision
	}
	return strings.TrimSpace(o) == strings.TrimSpace(t)
}
