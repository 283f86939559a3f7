package gluejob

import (
	"testing"

	"github.com/rs/zerolog"
)

const (
	testRegion    = "us-east-1"
	testAccountID = "123456789012"
	testJobName   = "etl-job"
)

func newTestHandler(t *testing.T) (*Handler, *MockAPI) {
	t.Helper()
	api := &MockAPI{}
	t.Cleanup(func() { api.AssertExpectations(t) })
	return NewHandler(api, zerolog.Nop()), api
}

func testModel() *Model {
	return &Model{
		Name: testJobName,
		Role: "arn:aws:iam::123456789012:role/glue",
		Command: &JobCommand{
			Name:           "glueetl",
			ScriptLocation: "s3://bucket/script.py",
		},
	}
}

func testRequest(m *Model) Request {
	return Request{
		DesiredResourceState:      m,
		Region:                    testRegion,
		AWSAccountID:              testAccountID,
		LogicalResourceIdentifier: "EtlJob",
		ClientRequestToken:        "4b90a7e4-b790-456b-a937-0cfdfa211dfe",
	}
}

func notFoundError() error {
	return serviceError(400, "EntityNotFoundException", "Job etl-job not found")
}
