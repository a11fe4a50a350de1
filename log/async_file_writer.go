package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileRotation bounds the size of a log file. A zero MaxSize never rotates.
type FileRotation struct {
	MaxSize    int // megabytes
	MaxBackups int
	Compress   bool
}

// AsyncFileWriter appends log lines to a file from a background goroutine so
// that analysis workers never block on disk. Lines written while the buffer
// is full are dropped and counted.
type AsyncFileWriter struct {
	filePath string
	rotation FileRotation
	fd       *lumberjack.Logger

	wg      sync.WaitGroup
	started int32
	dropped atomic.Uint64
	buf     chan []byte
	stop    chan struct{}
}

// NewAsyncFileWriter returns a writer for filePath buffering up to
// bufferLines pending lines. The file is opened by Start.
func NewAsyncFileWriter(filePath string, bufferLines int, rotation FileRotation) (*AsyncFileWriter, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("log file path %q: %w", filePath, err)
	}
	if bufferLines <= 0 {
		bufferLines = 1
	}
	return &AsyncFileWriter{
		filePath: abs,
		rotation: rotation,
		buf:      make(chan []byte, bufferLines),
		stop:     make(chan struct{}),
	}, nil
}

// Path is the absolute path of the log file.
func (w *AsyncFileWriter) Path() string { return w.filePath }

// Dropped is how many lines were discarded because the buffer was full.
func (w *AsyncFileWriter) Dropped() uint64 { return w.dropped.Load() }

func (w *AsyncFileWriter) Start() error {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return errors.New("log file writer already started")
	}
	if err := os.MkdirAll(filepath.Dir(w.filePath), 0o755); err != nil {
		atomic.StoreInt32(&w.started, 0)
		return err
	}
	maxSize := w.rotation.MaxSize
	if maxSize <= 0 {
		// lumberjack treats zero as its 100MB default.
		maxSize = 1 << 20
	}
	w.fd = &lumberjack.Logger{
		Filename:   w.filePath,
		MaxSize:    maxSize,
		MaxBackups: w.rotation.MaxBackups,
		Compress:   w.rotation.Compress,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case msg := <-w.buf:
				w.syncWrite(msg)
			case <-w.stop:
				w.drain()
				return
			}
		}
	}()
	return nil
}

func (w *AsyncFileWriter) drain() {
	for {
		select {
		case msg := <-w.buf:
			w.syncWrite(msg)
		default:
			return
		}
	}
}

func (w *AsyncFileWriter) syncWrite(msg []byte) {
	if _, err := w.fd.Write(msg); err != nil {
		fmt.Fprintf(os.Stderr, "log file write error: %v\n", err)
	}
}

// Write queues a copy of msg. It never blocks.
func (w *AsyncFileWriter) Write(msg []byte) (int, error) {
	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case w.buf <- buf:
	default:
		w.dropped.Add(1)
	}
	return len(msg), nil
}

// Stop flushes pending lines and closes the file. Stopping a writer that
// was never started is a no-op.
func (w *AsyncFileWriter) Stop() error {
	if atomic.LoadInt32(&w.started) == 0 {
		return nil
	}
	close(w.stop)
	w.wg.Wait()
	atomic.StoreInt32(&w.started, 0)
	return w.fd.Close()
}
