package main

import "fmt"

// PipelineError wraps a failure from one of the sequential stages named in
// spec.md §5 (search, classify, align, map, build, reconcile, report). It is
// the second of the two error planes in spec.md §7: a failure discovered
// once sequence processing has begun, as opposed to a ConfigError discovered
// before any sequence is processed.
type PipelineError struct {
	Component string
	Err       error
}

func (e *PipelineError) Error() string { return fmt.Sprintf("%s: %v", e.Component, e.Err) }
func (e *PipelineError) Unwrap() error { return e.Err }
