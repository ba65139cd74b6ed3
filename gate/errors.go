package gate

import "fmt"

// MissingMetricError indicates a thresholded metric is absent from the report.
type MissingMetricError struct {
	Metric string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("gate: metric %q not present in report", e.Metric)
}

// EmptyObservationsError indicates a metric is present in the report but has
// no recorded observations, which signals an upstream training-report defect.
type EmptyObservationsError struct {
	Metric string
}

func (e *EmptyObservationsError) Error() string {
	return fmt.Sprintf("gate: metric %q has no observations", e.Metric)
}

// InvalidSpecError indicates a malformed threshold spec entry (non-numeric
// threshold or unrecognised direction tag).
type InvalidSpecError struct {
	Metric string
	Detail string
}

func (e *InvalidSpecError) Error() string {
	if e.Metric == "" {
		return fmt.Sprintf("gate: invalid spec: %s", e.Detail)
	}
	return fmt.Sprintf("gate: invalid spec for metric %q: %s", e.Metric, e.Detail)
}
