package downloader

import (
	"errors"
	"fmt"
)

// ErrorKind classifies download failures for reporting.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindHTTPStatus
	KindContentType
	KindFilesystem
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindHTTPStatus:
		return "http status error"
	case KindContentType:
		return "invalid content type"
	case KindFilesystem:
		return "filesystem error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown error"
	}
}

// DownloadError wraps a failure with its classification. The wrapped error
// is preserved for errors.Is/As.
type DownloadError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *DownloadError {
	return &DownloadError{Kind: kind, Msg: msg, Err: err}
}

var (
	ErrAlreadyQueued = errors.New("downloader: episode already queued or running")
	ErrQueueFull     = errors.New("downloader: queue is full")
	ErrShuttingDown  = errors.New("downloader: coordinator is shutting down")
)
