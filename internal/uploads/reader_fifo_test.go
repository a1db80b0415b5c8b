//go:build unix

package uploads_test

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ksi/internal/uploads"
)

func TestReadBatchTimesOutOpeningFIFO(testInstance *testing.T) {
	fifoPath := filepath.Join(testInstance.TempDir(), "evidence.pipe")
	require.NoError(testInstance, syscall.Mkfifo(fifoPath, 0o600))
	testInstance.Cleanup(func() {
		writer, openError := os.OpenFile(fifoPath, os.O_WRONLY|syscall.O_NONBLOCK, 0)
		if openError == nil {
			writer.Close()
		}
	})

	reader := newTestReader(uploads.OSFileSystem{}, uploads.Configuration{ReadTimeout: 50 * time.Millisecond})

	readFinished := make(chan error, 1)
	go func() {
		_, readError := reader.ReadBatch(context.Background(), []string{fifoPath})
		readFinished <- readError
	}()

	select {
	case readError := <-readFinished:
		require.ErrorIs(testInstance, readError, uploads.ErrBatchReadFailed)
		require.ErrorIs(testInstance, readError, uploads.ErrReadTimedOut)
	case <-time.After(3 * time.Second):
		testInstance.Fatal("ReadBatch stayed blocked on a FIFO past the read timeout")
	}
}
