package exitcode

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genToolName() gopter.Gen {
	return gen.OneConstOf(
		"checkov", "tfsec", "tflint", "trivy", "dockle",
		"cfn-lint", "aws", "terraform", "bicep", "gcloud",
	)
}

// TestInterpretTotalityProperty checks that every (tool, code) pair maps to
// exactly one of the four statuses, including sentinel and garbage codes.
func TestInterpretTotalityProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	interp := NewInterpreter()

	properties.Property("every exit code maps to a valid status", prop.ForAll(
		func(tool string, code int) bool {
			got := interp.Interpret(tool, code)
			switch got.Status {
			case StatusPass, StatusWarn, StatusFail, StatusError:
				return got.Label != ""
			}
			return false
		},
		genToolName(),
		gen.IntRange(-1, 300),
	))

	properties.Property("interpretation is deterministic", prop.ForAll(
		func(tool string, code int) bool {
			return interp.Interpret(tool, code) == interp.Interpret(tool, code)
		},
		genToolName(),
		gen.IntRange(-1, 300),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestCfnLintBitmaskDominanceProperty checks severity dominance for any
// combination of the three known cfn-lint bits.
func TestCfnLintBitmaskDominanceProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	interp := NewInterpreter()

	properties.Property("error bit always yields FAIL", prop.ForAll(
		func(warn bool, info bool) bool {
			code := 0x2
			if warn {
				code |= 0x4
			}
			if info {
				code |= 0x8
			}
			return interp.Interpret("cfn-lint", code).Status == StatusFail
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("warn bit without error bit yields WARN", prop.ForAll(
		func(info bool) bool {
			code := 0x4
			if info {
				code |= 0x8
			}
			return interp.Interpret("cfn-lint", code).Status == StatusWarn
		},
		gen.Bool(),
	))

	properties.Property("codes with bits outside the mask need triage", prop.ForAll(
		func(code int) bool {
			if code&^0xE == 0 {
				return true // only known bits set, not this property's concern
			}
			got := interp.Interpret("cfn-lint", code)
			return got.Status == StatusError && got.NeedsTriage
		},
		gen.IntRange(1, 256),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
