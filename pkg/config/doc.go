// Package config loads the runtime configuration of the glue-job host and
// the desired-state documents it drives.
//
// The runtime configuration is a YAML file decoded over Default and
// checked with validator tags:
//
//	aws:
//	  region: eu-west-1
//	  account_id: "123456789012"
//	store:
//	  path: /var/lib/glue-job/history.db
//	runner:
//	  max_invocations: 20
//	policy:
//	  paths: [policies/]
//
// Desired-state documents describe one Glue job. They may be written as
// JSON, YAML, CUE or Starlark; all four are normalized to JSON and checked
// against the built-in #Job CUE schema, which is closed, so misspelled
// fields are reported with their position.
//
// A CUE document may hold helper fields next to a "job" field:
//
//	input: region: string
//	job: {
//	    Name: "nightly-etl"
//	    Role: "arn:aws:iam::123456789012:role/etl"
//	    Command: {Name: "glueetl", ScriptLocation: "s3://scripts-\(input.region)/etl.py"}
//	}
//
// A Starlark document assigns a dict to the global "job". Loader inputs
// are predeclared, and evaluation is cancelled after a timeout.
package config
