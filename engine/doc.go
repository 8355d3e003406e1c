// Package engine drives workflow definitions forward: it dispatches on
// the state's current node, applies the retry policy to failed LLM
// steps, persists a checkpoint after every distinct node transition,
// halts at pause points, and recovers interrupted threads after a
// crash.
//
// The engine guarantees three ordering properties that callers can
// rely on:
//
//   - a checkpoint is written once per node transition, never per loop
//     iteration, so backoff re-entries do not produce spurious rows;
//   - on resume, the post-approval state is persisted before the
//     execution loop re-enters, so a crash between the two never loses
//     the decision;
//   - checkpoint writes are the last action of a transition, after all
//     in-memory computation for the step has fully succeeded, so no
//     partial step result is ever persisted.
package engine
