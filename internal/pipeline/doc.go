// Package pipeline runs the three audit stages over a run record.
//
// A Pipeline executes Steps strictly in order: page audit, competitor
// analysis, report synthesis. Every step is isolated. A failing or
// panicking step is converted into a StageError, its message is appended
// to the record's error list, and the next step still runs. A step may
// return ErrSkipped to record that the skip policy bypassed it; this is
// not an error.
//
// BatchProcessor audits several URLs concurrently with errgroup. Each URL
// gets its own record and its own Pipeline, so runs never share state.
package pipeline
