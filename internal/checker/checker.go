// Package checker compares a program's actual run output against a test's
// expected target under one of four comparison modes, grounded on
// original_source/coderunners/checkers.py.
package checker

import (
	"context"
	"fmt"
	"strings"

	"judgeengine/internal/model"
)

// Checker renders a verdict for one test's actual-vs-expected comparison.
// It takes the TestCase that was run (for its Target/TargetFiles/
// TargetAssets) and the RunResult the executor produced (for its Outputs/
// OutputFiles/OutputAssets), and returns the status, score out of 100, and
// an optional human-readable message.
type Checker interface {
	Check(ctx context.Context, test model.TestCase, result model.RunResult) (model.Status, float64, *string)
}

// FromMode dispatches on comparisonMode for the three modes that need
// nothing beyond the test/result pair. Custom mode is built separately by
// NewCustom, since it additionally needs a compiled checker program.
func FromMode(mode model.ComparisonMode, floatPrecision float64, delimiter *string) (Checker, error) {
	switch mode {
	case model.ComparisonOK:
		return okChecker{}, nil
	case model.ComparisonWhole:
		return wholeEquality{}, nil
	case model.ComparisonToken:
		return tokenEquality{floatPrecision: floatPrecision, delimiter: delimiter}, nil
	default:
		return nil, fmt.Errorf("checker: %q comparison mode needs NewCustom, not FromMode", mode)
	}
}

type okChecker struct{}

func (okChecker) Check(context.Context, model.TestCase, model.RunResult) (model.Status, float64, *string) {
	return model.StatusOK, 100, nil
}

// wholeEquality requires the trimmed stdout, every target file, and every
// target asset to match exactly. Grounded on checkers.py's WholeEquality.
type wholeEquality struct{}

func (wholeEquality) Check(_ context.Context, test model.TestCase, result model.RunResult) (model.Status, float64, *string) {
	output := ""
	if result.Outputs != nil {
		output = *result.Outputs
	}
	if wholeStringsMatch(output, test.Target) &&
		filesMatch(result.OutputFiles, test.TargetFiles) &&
		assetsMatch(result.OutputAssets, test.TargetAssets) {
		return model.StatusOK, 100, nil
	}
	return model.StatusWA, 0, nil
}

func wholeStringsMatch(output, target string) bool {
	return strings.TrimSpace(output) == strings.TrimSpace(target)
}

func filesMatch(output, target map[string]string) bool {
	for name, want := range target {
		got, ok := output[name]
		if !ok || strings.TrimSpace(got) != strings.TrimSpace(want) {
			return false
		}
	}
	return true
}

func assetsMatch(output, target map[string]model.AssetBytes) bool {
	for name, want := range target {
		got, ok := output[name]
		if !ok || string(got) != string(want) {
			return false
		}
	}
	return true
}
