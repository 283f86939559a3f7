// Package engine provides the resumable workflow primitives shared by all
// resource handlers.
//
// # Invocations
//
// A handler invocation receives a Request and the callback context returned
// by the previous invocation, and produces a ProgressEvent. Nothing else
// survives between invocations, so every fact a later invocation needs must
// be written into the callback context.
//
//	IN_PROGRESS  re-invoke after CallbackDelaySeconds with CallbackContext
//	SUCCESS      finished, callback context dropped
//	FAILED       finished, ErrorCode and Message set
//
// # Chains
//
// Workflows are built as chains of steps:
//
//	return engine.Progress[Model, CallbackContext](model, cb).
//	    CheckExistence(h.preCreateCheck).
//	    Then(h.create).
//	    Then(h.done)
//
// A step runs only while the chain is in progress and no retry has been
// scheduled. The first step that fails, succeeds or asks for a delay ends
// the invocation.
//
// # Errors
//
// Provider errors go through Classify exactly once. The Classification
// names a taxonomy Kind and a Disposition (fail, bare fail, retry), and
// HandleError renders it into an outcome. Throttling codes on 4xx and any
// 5xx schedule a retry after DefaultCallbackDelaySeconds; everything else
// is terminal.
//
// Host side failures around an invocation (bad input, store errors,
// exhausted attempts) use EngineError instead.
package engine
