// Package diagnostics records unhandled server errors and client-reported
// errors as JSON lines and summarizes them for the operator.
package diagnostics

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	ServerErrorsFile = "backend_error_events.jsonl"
	ClientErrorsFile = "client_error_events.jsonl"
)

// ServerError is one unhandled error returned by an HTTP handler.
type ServerError struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Query     string    `json:"query_params,omitempty"`
	Status    int       `json:"status"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"error_message"`
}

// ClientError is an error reported by a frontend.
type ClientError struct {
	Timestamp time.Time      `json:"timestamp"`
	Screen    string         `json:"screen"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack,omitempty"`
	Platform  string         `json:"platform"`
	Extra     map[string]any `json:"extra,omitempty"`
	Source    string         `json:"source"`
}

// Sink stores diagnostic events. Implementations must be safe for concurrent
// use.
type Sink interface {
	RecordServerError(ctx context.Context, ev ServerError) error
	RecordClientError(ctx context.Context, ev ClientError) error
}

// FileSink appends events to one JSONL file per kind inside Dir.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create diagnostics dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Dir() string { return s.dir }

func (s *FileSink) RecordServerError(_ context.Context, ev ServerError) error {
	return s.append(ServerErrorsFile, ev)
}

func (s *FileSink) RecordClientError(_ context.Context, ev ClientError) error {
	return s.append(ClientErrorsFile, ev)
}

func (s *FileSink) append(name string, ev any) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadServerErrors reads every server error in dir. A missing file yields no
// events; lines that do not decode are skipped.
func LoadServerErrors(dir string) ([]ServerError, error) {
	return load[ServerError](filepath.Join(dir, ServerErrorsFile))
}

func LoadClientErrors(dir string) ([]ClientError, error) {
	return load[ClientError](filepath.Join(dir, ClientErrorsFile))
}

func load[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev T
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}
