package engine

import (
	"context"
)

// Handler is implemented by every resource handler. One call is one
// invocation: it runs until the workflow finishes or suspends.
type Handler[M, C any] interface {
	Handle(ctx context.Context, req Request[M], cb *C) ProgressEvent[M, C]
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[M, C any] func(ctx context.Context, req Request[M], cb *C) ProgressEvent[M, C]

// Handle calls f.
func (f HandlerFunc[M, C]) Handle(ctx context.Context, req Request[M], cb *C) ProgressEvent[M, C] {
	return f(ctx, req, cb)
}

// Request carries everything the caller supplies to one invocation.
type Request[M any] struct {
	// DesiredResourceState is the model the caller wants.
	DesiredResourceState *M `json:"desiredResourceState,omitempty"`

	// PreviousResourceState is the model before an update.
	PreviousResourceState *M `json:"previousResourceState,omitempty"`

	// DesiredResourceTags are stack level tags to apply.
	DesiredResourceTags map[string]string `json:"desiredResourceTags,omitempty"`

	// PreviousResourceTags are stack level tags applied before an update.
	PreviousResourceTags map[string]string `json:"previousResourceTags,omitempty"`

	// LogicalResourceIdentifier seeds name synthesis.
	LogicalResourceIdentifier string `json:"logicalResourceIdentifier,omitempty"`

	// ClientRequestToken is stable across retries of one request.
	ClientRequestToken string `json:"clientRequestToken,omitempty"`

	// StackID identifies the owning stack.
	StackID string `json:"stackId,omitempty"`

	// Region is the provider region.
	Region string `json:"region,omitempty"`

	// AWSAccountID is the provider account.
	AWSAccountID string `json:"awsAccountId,omitempty"`

	// NextToken is the pagination token of a list request.
	NextToken string `json:"nextToken,omitempty"`
}

// Model returns the desired state, or a zero model when absent.
func (r Request[M]) Model() *M {
	if r.DesiredResourceState != nil {
		return r.DesiredResourceState
	}
	return new(M)
}
