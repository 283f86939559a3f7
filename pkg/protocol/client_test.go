package protocol

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// answerOne decodes one invocation from r, answers it with success and
// hands the invocation back.
func answerOne(t *testing.T, r io.Reader, w io.Writer) <-chan *Invocation {
	t.Helper()

	got := make(chan *Invocation, 1)
	go func() {
		defer close(got)
		inv, err := NewDecoder(r).DecodeInvocation()
		if err != nil {
			t.Errorf("DecodeInvocation() error = %v", err)
			return
		}
		result, err := NewResult(inv.ID, engine.Success[widget, widgetContext](&widget{Name: "nightly"}), time.Millisecond)
		if err != nil {
			t.Errorf("NewResult() error = %v", err)
			return
		}
		if err := NewEncoder(w).EncodeResult(result); err != nil {
			t.Errorf("EncodeResult() error = %v", err)
		}
		got <- inv
	}()
	return got
}

func TestClientCarriesWorkflowAndAttempt(t *testing.T) {
	tests := []struct {
		name         string
		ctx          context.Context
		wantWorkflow string
		wantAttempt  int
	}{
		{
			name:         "scoped call",
			ctx:          WithInvocation(context.Background(), "wf-42", 3),
			wantWorkflow: "wf-42",
			wantAttempt:  3,
		},
		{
			name: "unscoped call",
			ctx:  context.Background(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqR, reqW := io.Pipe()
			resR, resW := io.Pipe()
			got := answerOne(t, reqR, resW)

			client := NewClient[widget, widgetContext](reqW, resR)
			defer client.Close()

			ev, err := client.Call(tt.ctx, engine.ActionRead, engine.Request[widget]{DesiredResourceState: &widget{Name: "nightly"}}, nil)
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if ev.Status != engine.StatusSuccess {
				t.Errorf("Status = %v, want %v", ev.Status, engine.StatusSuccess)
			}

			inv := <-got
			if inv == nil {
				t.Fatal("no invocation was received")
			}
			if inv.WorkflowID != tt.wantWorkflow {
				t.Errorf("WorkflowID = %q, want %q", inv.WorkflowID, tt.wantWorkflow)
			}
			if inv.Attempt != tt.wantAttempt {
				t.Errorf("Attempt = %d, want %d", inv.Attempt, tt.wantAttempt)
			}
		})
	}
}

func TestInvocationFrom(t *testing.T) {
	if _, _, ok := InvocationFrom(context.Background()); ok {
		t.Error("InvocationFrom() ok = true on a bare context")
	}

	wfID, attempt, ok := InvocationFrom(WithInvocation(context.Background(), "wf-1", 2))
	if !ok || wfID != "wf-1" || attempt != 2 {
		t.Errorf("InvocationFrom() = %q, %d, %v", wfID, attempt, ok)
	}
}
