// Package automation implements trigger-bound pipelines of hardware
// actions.
//
// An Automation pairs a Trigger (manual, process start/stop, power
// source change, feature state change) with an ordered list of Steps.
// Three step kinds exist: feature_set applies a named feature state,
// delay pauses the pipeline, and macro_replay plays a recorded input
// sequence. Unknown kinds are skipped at run time with a warning so
// definitions written for newer daemons still load.
//
// Execution semantics:
//   - Steps run strictly in ascending order, never concurrently
//   - The first failure halts the pipeline; later steps are skipped
//   - There is no rollback; completed steps stay applied
//   - Runs of the same automation serialize; different automations
//     run concurrently
//
// The package is organised as:
//   - Registry: cached CRUD over the Repository (SQLite)
//   - StepFactory: closed translation from Step definitions to
//     runtime steps
//   - Engine: pipeline execution with per-run audit records
//   - Binder: subscribes enabled automations to their trigger
//     listeners, leaning on listener reference counting so watchers
//     only poll while needed
package automation
