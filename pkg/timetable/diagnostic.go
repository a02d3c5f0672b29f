package timetable

type DiagnosticType string

const (
	DiagnosticSkippedRow        DiagnosticType = "SkippedRow"
	DiagnosticReconciliationGap DiagnosticType = "ReconciliationGap"
	DiagnosticFailedFetch       DiagnosticType = "FailedFetch"
	DiagnosticDiscardedTrack    DiagnosticType = "DiscardedTrack"
)

// Diagnostic records a non-fatal problem encountered while building the
// timetable - a skipped row, an unresolved location or a failed fetch. These
// accumulate alongside the result instead of aborting the run.
type Diagnostic struct {
	Type DiagnosticType

	Track    string
	Location string
	Detail   string
}

func CountDiagnostics(diagnostics []Diagnostic, diagnosticType DiagnosticType) int {
	count := 0
	for _, diagnostic := range diagnostics {
		if diagnostic.Type == diagnosticType {
			count += 1
		}
	}

	return count
}
