package action

import (
	"context"
	"fmt"
)

// Call is one planned invocation of a catalog action. Args are
// action-specific ("query" for searches, "url" for fetches and image probes).
type Call struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// Arg returns a named argument, empty string when absent.
func (c Call) Arg(key string) string {
	if c.Args == nil {
		return ""
	}
	return c.Args[key]
}

// Record is one normalized result row. Executors flatten whatever their
// provider returns into this shape.
type Record struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Result is the outcome of one dispatched call. Failures and timeouts are
// captured here rather than aborting the turn; Err is a string so the result
// round-trips through the run snapshot.
type Result struct {
	Call    Call     `json:"call"`
	Records []Record `json:"records,omitempty"`
	Text    string   `json:"text,omitempty"`
	Err     string   `json:"err,omitempty"`
}

// Failed reports whether the call produced an error instead of evidence.
func (r Result) Failed() bool { return r.Err != "" }

// Note renders the result as one evidence line for the run's note log.
func (r Result) Note() string {
	if r.Failed() {
		return fmt.Sprintf("[%s] failed: %s", r.Call.Name, r.Err)
	}
	if r.Text != "" {
		return fmt.Sprintf("[%s] %s", r.Call.Name, r.Text)
	}
	return fmt.Sprintf("[%s] %d results", r.Call.Name, len(r.Records))
}

// Executor runs one kind of action. Implementations must honor ctx deadlines;
// the dispatcher converts their errors into Result values.
type Executor interface {
	Execute(ctx context.Context, call Call) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, call Call) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, call Call) (Result, error) {
	return f(ctx, call)
}

// Registry maps catalog entries to their executors.
type Registry struct {
	catalog   *Catalog
	executors map[string]Executor
}

// NewRegistry builds a registry over a catalog. Every non-reflect catalog
// entry must have an executor; a missing one is a startup error.
func NewRegistry(catalog *Catalog, executors map[string]Executor) (*Registry, error) {
	for _, s := range catalog.List() {
		if s.Category == CategoryReflect {
			continue
		}
		if _, ok := executors[s.Name]; !ok {
			return nil, fmt.Errorf("no executor registered for action %s", s.Name)
		}
	}
	return &Registry{catalog: catalog, executors: executors}, nil
}

// Catalog returns the underlying catalog.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Dispatch executes one call under the given timeout context. Errors never
// escape: they come back inside the Result so the turn can keep going.
func (r *Registry) Dispatch(ctx context.Context, call Call) Result {
	if !r.catalog.Known(call.Name) {
		return Result{Call: call, Err: ErrUnknownAction{Name: call.Name}.Error()}
	}
	if r.catalog.CategoryOf(call.Name) == CategoryReflect {
		// reflection has no executor; the rationale text is the evidence
		return Result{Call: call, Text: call.Arg("thought")}
	}
	exec := r.executors[call.Name]
	res, err := exec.Execute(ctx, call)
	if err != nil {
		return Result{Call: call, Err: err.Error()}
	}
	res.Call = call
	return res
}
