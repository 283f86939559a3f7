// Package policy evaluates Glue job requests against Rego policies before
// any provider call is made.
//
// Each policy is a Rego package that may define two sets:
//
//	deny  blocking results, reported as Violations
//	warn  advisory results, reported as Warnings
//
// A set member is either a string message or an object with message,
// field and severity keys. Deny results take the policy severity unless
// the object overrides it; a result blocks when its severity is error or
// critical.
//
// The input document is PolicyInput: the action, the desired model in its
// wire form under resource, the previous model under previous_state, the
// stack tags and a context with region and account.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies/"}); err != nil {
//	    return err
//	}
//
//	input, err := policy.NewInput(engine.ActionCreate, req)
//	if err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, input)
//	if err != nil {
//	    return err
//	}
//	if !result.Allowed {
//	    // reject the request
//	}
//
// Long running processes can call Engine.Watch to reload file policies
// when they change on disk.
package policy
