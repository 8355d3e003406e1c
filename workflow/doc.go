// Package workflow defines the node-based state machine model executed
// by the engine: workflow state, definitions, the checkpoint record,
// and the checkpoint store contract.
//
// A workflow is a set of named nodes. Each node maps to a step function
// that receives the current state and returns a full replacement state,
// never mutating the input in place. The engine dispatches on the
// state's CurrentNode until the state reaches a terminal or paused
// status, persisting one checkpoint per distinct transition.
package workflow
