package handlers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/vanamuthuV/logsy/pkg/events"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

var (
	errUnsupportedMediaType = errors.New("unsupported media type")
	errPayloadTooLarge      = errors.New("payload too large")
)

// mediaType returns the normalized media type of r, without parameters.
func mediaType(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "", fmt.Errorf("%w: Content-Type is required", errUnsupportedMediaType)
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errUnsupportedMediaType, ct)
	}
	switch mt {
	case contentTypeJSON, contentTypeNDJSON:
		return mt, nil
	}
	return "", fmt.Errorf("%w: %s", errUnsupportedMediaType, mt)
}

// readBody returns the decompressed body, failing with errPayloadTooLarge
// when either the wire body or the decompressed body exceeds limit.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	var (
		body io.Reader = r.Body
		err  error
	)

	switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		var zr *gzip.Reader
		zr, err = gzip.NewReader(r.Body)
		if err != nil {
			return nil, classifyReadError(err)
		}
		defer zr.Close()
		body = zr
	case "zstd":
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(r.Body, zstd.WithDecoderMaxMemory(uint64(limit)+1))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer zr.Close()
		body = zr
	default:
		return nil, fmt.Errorf("%w: Content-Encoding %s", errUnsupportedMediaType, enc)
	}

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, classifyReadError(err)
	}
	if int64(len(data)) > limit {
		return nil, errPayloadTooLarge
	}
	return data, nil
}

func classifyReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return errPayloadTooLarge
	}
	return fmt.Errorf("failed to read request body: %w", err)
}

// parseEvent decodes one event. A missing timestamp is set to receivedAt.
func parseEvent(data []byte, receivedAt time.Time) (*events.LogEvent, error) {
	e, err := events.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = events.NewTimestamp(receivedAt)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// parseBatch decodes an NDJSON body. Blank lines are ignored; any invalid
// line rejects the whole batch.
func parseBatch(data []byte, receivedAt time.Time) ([]*events.LogEvent, error) {
	var out []*events.LogEvent

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		e, err := parseEvent(raw, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan ndjson body: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("batch contains no events")
	}
	return out, nil
}
