// Package approval implements the human-in-the-loop sign-off layer. Selected
// steps (typically a production model deployment) pause until an explicit
// approve or reject decision is recorded.
package approval
