// Package provider abstracts the LLM backend behind a single Generate call.
// Everything above it (planner, judge, extractor) treats the model as an
// untrusted text oracle.
package provider

import "context"

// LLM generates one completion. The model name selects the backend model;
// routing between roles is decided by the caller via config.
type LLM interface {
	Generate(ctx context.Context, model, system, user string) (string, error)
}
