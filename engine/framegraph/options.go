package framegraph

import "fmt"

// HazardPolicy decides what Compile does with detected hazards. They are
// always logged.
type HazardPolicy int

const (
	HazardPolicyReport HazardPolicy = iota
	HazardPolicyFatal
)

func (p HazardPolicy) String() string {
	switch p {
	case HazardPolicyReport:
		return "report"
	case HazardPolicyFatal:
		return "fatal"
	}
	return fmt.Sprintf("HazardPolicy(%d)", int(p))
}

func ParseHazardPolicy(s string) (HazardPolicy, error) {
	switch s {
	case "", "report":
		return HazardPolicyReport, nil
	case "fatal":
		return HazardPolicyFatal, nil
	}
	return HazardPolicyReport, fmt.Errorf("unknown hazard policy %q", s)
}

type compileOptions struct {
	hazardPolicy HazardPolicy
}

type CompileOption func(*compileOptions)

func WithHazardPolicy(policy HazardPolicy) CompileOption {
	return func(o *compileOptions) {
		o.hazardPolicy = policy
	}
}
