package uploads_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ksi/internal/uploads"
)

const (
	testPDFContentConstant  = "%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"
	testPNGContentConstant  = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	testTextContentConstant = "network segmentation notes"
)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

type stubFileSystem struct {
	files    map[string][]byte
	blocking map[string]bool
	failures map[string]error
	stalled  map[string]bool
	release  chan struct{}
	opened   chan *blockingReader
}

func (fileSystem stubFileSystem) Open(path string) (io.ReadCloser, error) {
	if fileSystem.stalled[path] {
		<-fileSystem.release
		file := newBlockingReader()
		if fileSystem.opened != nil {
			fileSystem.opened <- file
		}
		return file, nil
	}
	if failure, failing := fileSystem.failures[path]; failing {
		return nil, failure
	}
	if fileSystem.blocking[path] {
		return newBlockingReader(), nil
	}
	content, exists := fileSystem.files[path]
	if !exists {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type blockingReader struct {
	closed chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{closed: make(chan struct{})}
}

func (reader *blockingReader) Read([]byte) (int, error) {
	<-reader.closed
	return 0, io.ErrClosedPipe
}

func (reader *blockingReader) Close() error {
	close(reader.closed)
	return nil
}

func testUploadTime() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestReader(fileSystem uploads.FileSystem, configuration uploads.Configuration) *uploads.BatchReader {
	return uploads.NewBatchReader(uploads.BatchReaderDependencies{
		FileSystem:    fileSystem,
		Clock:         fixedClock{now: testUploadTime()},
		Configuration: configuration,
	})
}

func TestReadBatchBuildsDocumentsInArgumentOrder(testInstance *testing.T) {
	fileSystem := stubFileSystem{files: map[string][]byte{
		"/evidence/A.pdf":     []byte(testPDFContentConstant),
		"/evidence/B.png":     []byte(testPNGContentConstant),
		"/evidence/notes.txt": []byte(testTextContentConstant),
	}}
	reader := newTestReader(fileSystem, uploads.Configuration{Concurrency: 2})

	documents, readError := reader.ReadBatch(context.Background(), []string{"/evidence/A.pdf", "/evidence/B.png", "/evidence/notes.txt"})
	require.NoError(testInstance, readError)
	require.Len(testInstance, documents, 3)

	expectedMillis := testUploadTime().UnixMilli()
	testCases := []struct {
		name         string
		index        int
		expectedName string
		expectedType string
		expectedSize int64
	}{
		{name: "pdf", index: 0, expectedName: "A.pdf", expectedType: "application/pdf", expectedSize: int64(len(testPDFContentConstant))},
		{name: "png", index: 1, expectedName: "B.png", expectedType: "image/png", expectedSize: int64(len(testPNGContentConstant))},
		{name: "text", index: 2, expectedName: "notes.txt", expectedType: "text/plain", expectedSize: int64(len(testTextContentConstant))},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			document := documents[testCase.index]
			require.Equal(testInstance, testCase.expectedName, document.Name)
			require.Equal(testInstance, testCase.expectedType, document.Type)
			require.Equal(testInstance, testCase.expectedSize, document.Size)
			require.Equal(testInstance, "2025-06-01T12:00:00.000Z", document.UploadedAt)
			require.Equal(testInstance, fmt.Sprintf("%d-%d", expectedMillis, testCase.index), document.ID)

			mediaType, content, decodeError := uploads.DecodeDataURL(document.Data)
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, testCase.expectedType, mediaType)
			require.Equal(testInstance, testCase.expectedSize, int64(len(content)))
		})
	}
}

func TestReadBatchFailsAsAWhole(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileSystem    stubFileSystem
		configuration uploads.Configuration
		expectedError error
	}{
		{
			name: "missing_file",
			fileSystem: stubFileSystem{files: map[string][]byte{
				"/evidence/A.pdf": []byte(testPDFContentConstant),
			}},
			expectedError: os.ErrNotExist,
		},
		{
			name: "open_failure",
			fileSystem: stubFileSystem{
				files:    map[string][]byte{"/evidence/A.pdf": []byte(testPDFContentConstant)},
				failures: map[string]error{"/evidence/B.png": os.ErrPermission},
			},
			expectedError: os.ErrPermission,
		},
		{
			name: "file_too_large",
			fileSystem: stubFileSystem{files: map[string][]byte{
				"/evidence/A.pdf": []byte(testPDFContentConstant),
				"/evidence/B.png": bytes.Repeat([]byte("x"), 64),
			}},
			configuration: uploads.Configuration{MaxFileBytes: 48},
			expectedError: uploads.ErrFileTooLarge,
		},
		{
			name: "read_timeout",
			fileSystem: stubFileSystem{
				files:    map[string][]byte{"/evidence/A.pdf": []byte(testPDFContentConstant)},
				blocking: map[string]bool{"/evidence/B.png": true},
			},
			configuration: uploads.Configuration{ReadTimeout: 20 * time.Millisecond},
			expectedError: uploads.ErrReadTimedOut,
		},
		{
			name: "open_timeout",
			fileSystem: stubFileSystem{
				files:   map[string][]byte{"/evidence/A.pdf": []byte(testPDFContentConstant)},
				stalled: map[string]bool{"/evidence/B.png": true},
				release: make(chan struct{}),
			},
			configuration: uploads.Configuration{ReadTimeout: 20 * time.Millisecond},
			expectedError: uploads.ErrReadTimedOut,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			if testCase.fileSystem.release != nil {
				testInstance.Cleanup(func() { close(testCase.fileSystem.release) })
			}
			reader := newTestReader(testCase.fileSystem, testCase.configuration)
			documents, readError := reader.ReadBatch(context.Background(), []string{"/evidence/A.pdf", "/evidence/B.png"})
			require.Nil(testInstance, documents)
			require.ErrorIs(testInstance, readError, uploads.ErrBatchReadFailed)
			require.ErrorIs(testInstance, readError, testCase.expectedError)
			require.Contains(testInstance, readError.Error(), "/evidence/B.png")
		})
	}
}

func TestReadBatchHonorsCanceledContext(testInstance *testing.T) {
	fileSystem := stubFileSystem{blocking: map[string]bool{"/evidence/A.pdf": true}}
	reader := newTestReader(fileSystem, uploads.Configuration{ReadTimeout: time.Minute})

	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, readError := reader.ReadBatch(executionContext, []string{"/evidence/A.pdf"})
	require.ErrorIs(testInstance, readError, context.Canceled)
}

func TestReadBatchClosesFilesOpenedAfterTimeout(testInstance *testing.T) {
	fileSystem := stubFileSystem{
		stalled: map[string]bool{"/mnt/evidence/A.pdf": true},
		release: make(chan struct{}),
		opened:  make(chan *blockingReader, 1),
	}
	reader := newTestReader(fileSystem, uploads.Configuration{ReadTimeout: 20 * time.Millisecond})

	readFinished := make(chan error, 1)
	go func() {
		_, readError := reader.ReadBatch(context.Background(), []string{"/mnt/evidence/A.pdf"})
		readFinished <- readError
	}()

	select {
	case readError := <-readFinished:
		require.ErrorIs(testInstance, readError, uploads.ErrReadTimedOut)
	case <-time.After(2 * time.Second):
		testInstance.Fatal("ReadBatch did not return after the read timeout while Open was stalled")
	}

	close(fileSystem.release)
	lateFile := <-fileSystem.opened
	require.Eventually(testInstance, func() bool {
		select {
		case <-lateFile.closed:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestReadBatchWithoutPathsReturnsEmpty(testInstance *testing.T) {
	documents, readError := newTestReader(stubFileSystem{}, uploads.Configuration{}).ReadBatch(context.Background(), nil)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, documents)
}

func TestReadBatchReadsLocalFiles(testInstance *testing.T) {
	directory := testInstance.TempDir()
	filePath := filepath.Join(directory, "policy.txt")
	require.NoError(testInstance, os.WriteFile(filePath, []byte(testTextContentConstant), 0o600))

	reader := uploads.NewBatchReader(uploads.BatchReaderDependencies{})
	documents, readError := reader.ReadBatch(context.Background(), []string{filePath})
	require.NoError(testInstance, readError)
	require.Len(testInstance, documents, 1)
	require.Equal(testInstance, "policy.txt", documents[0].Name)
	require.Equal(testInstance, "text/plain", documents[0].Type)
}

func TestDecodeDataURL(testInstance *testing.T) {
	testCases := []struct {
		name              string
		dataURL           string
		expectedMediaType string
		expectedContent   string
		expectError       bool
	}{
		{name: "round_trip", dataURL: uploads.EncodeDataURL("text/plain", []byte("hello")), expectedMediaType: "text/plain", expectedContent: "hello"},
		{name: "missing_scheme", dataURL: "text/plain;base64,aGVsbG8=", expectError: true},
		{name: "not_base64_marked", dataURL: "data:text/plain,hello", expectError: true},
		{name: "invalid_payload", dataURL: "data:text/plain;base64,@@@", expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			mediaType, content, decodeError := uploads.DecodeDataURL(testCase.dataURL)
			if testCase.expectError {
				require.True(testInstance, errors.Is(decodeError, uploads.ErrMalformedDataURL))
				return
			}
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, testCase.expectedMediaType, mediaType)
			require.Equal(testInstance, testCase.expectedContent, string(content))
		})
	}
}

func TestConfigurationSanitizeRestoresDefaults(testInstance *testing.T) {
	sanitized := uploads.Configuration{ReadTimeout: -1, MaxFileBytes: 0, Concurrency: -3}.Sanitize()
	require.Equal(testInstance, uploads.DefaultConfiguration(), sanitized)

	custom := uploads.Configuration{ReadTimeout: time.Second, MaxFileBytes: 10, Concurrency: 1}
	require.Equal(testInstance, custom, custom.Sanitize())
}
