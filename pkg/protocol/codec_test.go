package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/openfroyo/gluejob/pkg/engine"
)

type widget struct {
	Name string `json:"Name"`
}

type widgetContext struct {
	Checked bool `json:"checked"`
}

func TestEncoder(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "encode result message",
			msgType: MessageTypeResult,
			data:    &Result{InvocationID: "inv-1", Status: engine.StatusSuccess, Event: json.RawMessage(`{}`)},
		},
		{
			name:    "encode error message",
			msgType: MessageTypeError,
			data:    &ErrorMessage{InvocationID: "inv-1", Code: "VALIDATION_ERROR", Message: "bad request"},
		},
		{
			name:    "invalid message type",
			msgType: MessageType("CMD"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewEncoder(&buf).Encode(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Encode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if !strings.HasSuffix(buf.String(), "\n") {
				t.Error("message should end with a newline")
			}
			var msg Message
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &msg); err != nil {
				t.Fatalf("output is not valid JSON: %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("Message type = %v, want %v", msg.Type, tt.msgType)
			}
		})
	}
}

func TestDecodeInvocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid create invocation",
			input: `{"type":"INVOKE","timestamp":"2024-01-01T00:00:00Z","data":{"id":"inv-1","action":"CREATE","request":{"desiredResourceState":{"Name":"a"}}}}`,
		},
		{
			name:    "wrong message type",
			input:   `{"type":"RESULT","timestamp":"2024-01-01T00:00:00Z","data":{}}`,
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   `{"type":"INVOKE","timestamp":"2024-01-01T00:00:00Z","data":{"action":"READ","request":{}}}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   `{"type":"INVOKE","timestamp":"2024-01-01T00:00:00Z","data":{"id":"inv-1","action":"PATCH","request":{}}}`,
			wantErr: true,
		},
		{
			name:    "missing request",
			input:   `{"type":"INVOKE","timestamp":"2024-01-01T00:00:00Z","data":{"id":"inv-1","action":"READ"}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{invalid json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewDecoder(strings.NewReader(tt.input + "\n")).DecodeInvocation()
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeInvocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && inv.Action != engine.ActionCreate {
				t.Errorf("Action = %v, want CREATE", inv.Action)
			}
		})
	}
}

func TestDecodeEOF(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Decode()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestDecodeStreamFailure(t *testing.T) {
	broken := errors.New("broken pipe")
	dec := NewDecoder(failingReader{err: broken})

	for i := 0; i < 2; i++ {
		_, err := dec.Decode()
		if !errors.Is(err, ErrStream) || !errors.Is(err, broken) {
			t.Fatalf("read %d: expected stream error wrapping the read error, got %v", i, err)
		}
	}
}

func TestDecodeOversizedLine(t *testing.T) {
	line := strings.Repeat("x", maxLineSize+1) + "\n"
	_, err := NewDecoder(strings.NewReader(line)).Decode()
	if !errors.Is(err, ErrStream) {
		t.Errorf("expected stream error, got %v", err)
	}
}

func TestDecodeMalformedLineIsNotStreamError(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{not json\n"))
	_, err := dec.Decode()
	if err == nil || errors.Is(err, ErrStream) {
		t.Errorf("expected a message error, got %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after the bad line, got %v", err)
	}
}

func TestInvocationRoundTrip(t *testing.T) {
	req := engine.Request[widget]{
		DesiredResourceState: &widget{Name: "nightly"},
		ClientRequestToken:   "token-1",
	}
	inv, err := NewInvocation("inv-1", engine.ActionCreate, req, &widgetContext{Checked: true})
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).EncodeInvocation(inv); err != nil {
		t.Fatalf("EncodeInvocation() error = %v", err)
	}
	decoded, err := NewDecoder(&buf).DecodeInvocation()
	if err != nil {
		t.Fatalf("DecodeInvocation() error = %v", err)
	}

	gotReq, cb, err := ParseInvocation[widget, widgetContext](decoded)
	if err != nil {
		t.Fatalf("ParseInvocation() error = %v", err)
	}
	if gotReq.DesiredResourceState == nil || gotReq.DesiredResourceState.Name != "nightly" {
		t.Errorf("unexpected desired state: %+v", gotReq.DesiredResourceState)
	}
	if gotReq.ClientRequestToken != "token-1" {
		t.Errorf("ClientRequestToken = %q", gotReq.ClientRequestToken)
	}
	if cb == nil || !cb.Checked {
		t.Errorf("callback context not carried: %+v", cb)
	}
}

func TestParseInvocationWithoutContext(t *testing.T) {
	inv, err := NewInvocation[widget, widgetContext]("inv-1", engine.ActionRead, engine.Request[widget]{}, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	_, cb, err := ParseInvocation[widget, widgetContext](inv)
	if err != nil {
		t.Fatalf("ParseInvocation() error = %v", err)
	}
	if cb != nil {
		t.Errorf("expected nil callback context, got %+v", cb)
	}
}

func TestResultCarriesEventSummary(t *testing.T) {
	ev := engine.Retry(&widget{Name: "a"}, &widgetContext{}, 1, engine.ErrorCodeThrottling)
	result, err := NewResult("inv-2", ev, 250*time.Millisecond)
	if err != nil {
		t.Fatalf("NewResult() error = %v", err)
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).EncodeResult(result); err != nil {
		t.Fatalf("EncodeResult() error = %v", err)
	}
	decoded, err := NewDecoder(&buf).DecodeResult()
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}

	if decoded.Status != engine.StatusInProgress || decoded.ErrorCode != engine.ErrorCodeThrottling {
		t.Errorf("unexpected summary: %+v", decoded)
	}
	if decoded.CallbackDelaySeconds != 1 {
		t.Errorf("CallbackDelaySeconds = %d, want 1", decoded.CallbackDelaySeconds)
	}

	got, err := ParseEvent[widget, widgetContext](decoded)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if got.ResourceModel == nil || got.ResourceModel.Name != "a" {
		t.Errorf("unexpected model: %+v", got.ResourceModel)
	}
	if got.CallbackContext == nil {
		t.Error("in progress event should keep its callback context")
	}
}

func TestDecodeResultReportsError(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).EncodeError(&ErrorMessage{InvocationID: "inv-3", Code: "VALIDATION_ERROR", Message: "bad"}); err != nil {
		t.Fatalf("EncodeError() error = %v", err)
	}

	_, err := NewDecoder(&buf).DecodeResult()
	if err == nil || !strings.Contains(err.Error(), "VALIDATION_ERROR") {
		t.Errorf("expected error carrying the code, got %v", err)
	}
}
