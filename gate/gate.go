package gate

// Evaluate decides whether the final observation of every thresholded metric
// clears its bar. Rules are checked in spec order and evaluation stops on the
// first violation, mirroring fail-fast gating: the returned HOLD decision
// names only that first metric.
//
// Evaluate is a pure function of its arguments: no hidden state, no side
// effects, safe for concurrent callers. Errors are never coerced into a
// default decision; "could not evaluate" and "evaluated and held" stay
// distinct.
func Evaluate(report Report, spec Spec) (*Decision, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	for _, rule := range spec {
		observations, ok := report[rule.Metric]
		if !ok {
			return nil, &MissingMetricError{Metric: rule.Metric}
		}
		if len(observations) == 0 {
			return nil, &EmptyObservationsError{Metric: rule.Metric}
		}
		final := observations[len(observations)-1]
		direction, err := rule.direction()
		if err != nil {
			return nil, err
		}
		violated := false
		switch direction {
		case LowerIsBetter:
			violated = final > rule.Threshold
		case HigherIsBetter:
			violated = final < rule.Threshold
		}
		if violated {
			return holdDecision(rule.Metric, final, rule.Threshold), nil
		}
	}
	return deployDecision(), nil
}
