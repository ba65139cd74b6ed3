// Package gate implements the metrics threshold gate that decides whether a
// trained model clears its configured quality bar. Evaluation is a pure
// function of a metric report and a threshold spec; the resulting decision is
// consumed by pipeline conditional transitions to gate model deployment.
package gate
