package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// maxLineSize bounds a single encoded message.
const maxLineSize = 10 * 1024 * 1024

// ErrStream reports that the input stream itself failed, as opposed to a
// malformed message. No further message can be read after it.
var ErrStream = errors.New("protocol stream failed")

// Encoder writes protocol messages to an io.Writer, one per line.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a new protocol encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: bufio.NewWriter(w),
	}
}

// Encode writes a message to the output stream.
func (e *Encoder) Encode(msgType MessageType, data interface{}) error {
	if err := msgType.Validate(); err != nil {
		return fmt.Errorf("invalid message type: %w", err)
	}

	var dataBytes []byte
	var err error
	if data != nil {
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	msgBytes, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := e.w.Write(msgBytes); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// EncodeInvocation sends an INVOKE message.
func (e *Encoder) EncodeInvocation(inv *Invocation) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("invalid invocation: %w", err)
	}
	return e.Encode(MessageTypeInvoke, inv)
}

// EncodeResult sends a RESULT message.
func (e *Encoder) EncodeResult(result *Result) error {
	return e.Encode(MessageTypeResult, result)
}

// EncodeError sends an ERROR message.
func (e *Encoder) EncodeError(msg *ErrorMessage) error {
	return e.Encode(MessageTypeError, msg)
}

// Decoder reads protocol messages from an io.Reader.
type Decoder struct {
	r *bufio.Scanner
}

// NewDecoder creates a new protocol decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Decoder{
		r: scanner,
	}
}

// Decode reads the next message from the input stream. It returns io.EOF
// at the end of input.
func (d *Decoder) Decode() (*Message, error) {
	if !d.r.Scan() {
		if err := d.r.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStream, err)
		}
		return nil, io.EOF
	}

	line := d.r.Bytes()
	if len(line) == 0 {
		return nil, fmt.Errorf("empty line")
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if err := msg.Type.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	return &msg, nil
}

// DecodeInvocation decodes an INVOKE message.
func (d *Decoder) DecodeInvocation() (*Invocation, error) {
	msg, err := d.Decode()
	if err != nil {
		return nil, err
	}

	if msg.Type != MessageTypeInvoke {
		return nil, fmt.Errorf("expected INVOKE message, got %s", msg.Type)
	}

	var inv Invocation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invocation: %w", err)
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invocation: %w", err)
	}

	return &inv, nil
}

// DecodeResult decodes a RESULT message. An ERROR message is returned as
// an error carrying its code and text.
func (d *Decoder) DecodeResult() (*Result, error) {
	msg, err := d.Decode()
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case MessageTypeResult:
		var result Result
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		return &result, nil
	case MessageTypeError:
		var em ErrorMessage
		if err := json.Unmarshal(msg.Data, &em); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error: %w", err)
		}
		return nil, &em
	default:
		return nil, fmt.Errorf("expected RESULT message, got %s", msg.Type)
	}
}
