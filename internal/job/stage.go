package job

import "fmt"

// StageResult is the payload a completed stage hands back. Exactly one of the
// pointer fields may be set, matching Target. Keeping the merge in a single
// switch with one case per target status makes the compiler hold every
// transition to the fields that status is allowed to touch.
type StageResult struct {
	Target     Status
	Analysis   *Analysis
	Generated  []GeneratedFile
	Validation *Validation
	Export     *Export
	Err        string
}

// AnalysisResult reports a successful analyze stage.
func AnalysisResult(a Analysis) StageResult {
	return StageResult{Target: StatusComplete, Analysis: &a}
}

// GenerationResult reports a successful generate stage.
func GenerationResult(files []GeneratedFile) StageResult {
	return StageResult{Target: StatusGenerated, Generated: files}
}

// ValidationResult reports a successful validate stage.
func ValidationResult(v Validation) StageResult {
	return StageResult{Target: StatusValidated, Validation: &v}
}

// ExportResult reports a successful export stage.
func ExportResult(e Export) StageResult {
	return StageResult{Target: StatusExported, Export: &e}
}

// FailureResult reports a failed stage.
func FailureResult(err error) StageResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StageResult{Target: StatusError, Err: msg}
}

// StartResult marks a record as entering a stage without attaching a payload.
func StartResult(target Status) StageResult {
	return StageResult{Target: target}
}

// Apply merges a stage result into the record. Each case updates only the
// fields its target status owns; everything else on the record is preserved.
// The transition itself is not checked here, callers guard legality first.
func Apply(state State, result StageResult) (State, error) {
	switch result.Target {
	case StatusAnalyzing, StatusValidating:
		state.Status = result.Target
	case StatusComplete:
		if result.Analysis == nil {
			return State{}, fmt.Errorf("complete result carries no analysis")
		}
		state.Status = StatusComplete
		state.Analysis = result.Analysis
	case StatusGenerated:
		if len(result.Generated) == 0 {
			return State{}, fmt.Errorf("generated result carries no files")
		}
		state.Status = StatusGenerated
		state.Generated = result.Generated
	case StatusValidated:
		if result.Validation == nil {
			return State{}, fmt.Errorf("validated result carries no validation")
		}
		state.Status = StatusValidated
		state.Validation = result.Validation
	case StatusExported:
		if result.Export == nil {
			return State{}, fmt.Errorf("exported result carries no export")
		}
		state.Status = StatusExported
		state.Export = result.Export
	case StatusError:
		state.Status = StatusError
		state.Error = result.Err
		if state.Error == "" {
			state.Error = "unknown error"
		}
	default:
		return State{}, fmt.Errorf("stage result targets unknown status %q", result.Target)
	}
	return state, nil
}
