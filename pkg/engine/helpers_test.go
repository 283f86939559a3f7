package engine

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type testModel struct {
	Name string `json:"Name,omitempty"`
}

type testContext struct {
	Checked bool `json:"checked,omitempty"`
}

// serviceError builds an error shaped like the ones the SDK returns.
func serviceError(status int, code, message string) error {
	return &smithy.OperationError{
		ServiceID:     "Glue",
		OperationName: "GetJob",
		Err: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      &smithy.GenericAPIError{Code: code, Message: message},
		},
	}
}

// undecodedError builds an error for a response whose body the SDK could
// not decode, as with an HTML gateway page.
func undecodedError(status int) error {
	return &smithy.OperationError{
		ServiceID:     "Glue",
		OperationName: "GetJob",
		Err: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      &smithy.DeserializationError{Err: errors.New("invalid character '<' looking for beginning of value")},
		},
	}
}
