package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fastjson"
)

// DecodeError marks a payload that can never be processed. Consumers log it,
// skip the message and commit its offset.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "failed to decode log event: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err, or any error it wraps, is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Encode serializes an event for the message bus.
func Encode(e *LogEvent) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("cannot encode nil log event")
	}
	out := *e
	if len(out.Metadata) == 0 {
		out.Metadata = nil
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log event: %w", err)
	}
	return data, nil
}

// Unmarshal parses data without checking required fields. Unknown fields are
// ignored, and anything after the object is an error. Metadata numbers are kept as json.Number so they pass through
// unchanged.
func Unmarshal(data []byte) (*LogEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &DecodeError{Err: errors.New("payload is not a JSON object")}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var e LogEvent
	if err := dec.Decode(&e); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Err: errors.New("unexpected data after the JSON object")}
	}
	if len(e.Metadata) == 0 {
		e.Metadata = nil
	}
	return &e, nil
}

// Decode parses and validates a message body.
func Decode(data []byte) (*LogEvent, error) {
	e, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return e, nil
}

var parserPool fastjson.ParserPool

// PeekLevel reads only the level field of an encoded event. It lets a
// consumer drop events it does not care about without a full decode.
func PeekLevel(data []byte) (Level, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	if v.Type() != fastjson.TypeObject {
		return "", &DecodeError{Err: errors.New("payload is not a JSON object")}
	}

	// Match the full decode: keys are matched case-insensitively and the last
	// duplicate wins.
	var lv *fastjson.Value
	v.GetObject().Visit(func(key []byte, val *fastjson.Value) {
		if strings.EqualFold(string(key), "level") {
			lv = val
		}
	})
	if lv == nil || lv.Type() != fastjson.TypeString {
		return "", &DecodeError{Err: errors.New("level is missing or not a string")}
	}
	level, err := ParseLevel(string(lv.GetStringBytes()))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return level, nil
}
