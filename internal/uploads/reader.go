package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/ksi/internal/catalog"
)

const (
	documentIdentifierTemplateConstant = "%d-%d"
	dataURLTemplateConstant            = "data:%s;base64,%s"
	uploadTimestampLayoutConstant      = "2006-01-02T15:04:05.000Z07:00"
	mediaTypeParameterSeparator        = ";"
	batchReadErrorTemplateConstant     = "%w: %s: %w"
	fileTooLargeTemplateConstant       = "%w (limit %d bytes)"
	batchReadStartedMessageConstant    = "reading upload batch"
	batchReadCompletedMessageConstant  = "upload batch read"
	fileCountFieldConstant             = "files"
	totalBytesFieldConstant            = "bytes"
)

// ErrBatchReadFailed indicates at least one file of a batch could not be read.
var ErrBatchReadFailed = errors.New("upload batch failed")

// ErrFileTooLarge indicates a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds the upload size limit")

// ErrReadTimedOut indicates a single file read did not finish within the read timeout.
var ErrReadTimedOut = errors.New("file read timed out")

// FileSystem opens files for reading.
type FileSystem interface {
	Open(path string) (io.ReadCloser, error)
}

// OSFileSystem reads from the local file system.
type OSFileSystem struct{}

// Open opens path for reading.
func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// BatchReaderDependencies describes the collaborators used by BatchReader.
type BatchReaderDependencies struct {
	FileSystem    FileSystem
	Clock         Clock
	Logger        *zap.Logger
	Configuration Configuration
}

// BatchReader reads a set of files into documents.
type BatchReader struct {
	fileSystem    FileSystem
	clock         Clock
	logger        *zap.Logger
	configuration Configuration
}

// NewBatchReader constructs a BatchReader.
func NewBatchReader(dependencies BatchReaderDependencies) *BatchReader {
	reader := &BatchReader{
		fileSystem:    dependencies.FileSystem,
		clock:         dependencies.Clock,
		logger:        dependencies.Logger,
		configuration: dependencies.Configuration.Sanitize(),
	}
	if reader.fileSystem == nil {
		reader.fileSystem = OSFileSystem{}
	}
	if reader.clock == nil {
		reader.clock = systemClock{}
	}
	if reader.logger == nil {
		reader.logger = zap.NewNop()
	}
	return reader
}

// ReadBatch reads every path and returns one document per path in argument order.
// The batch fails as a whole when any read fails, exceeds the size limit, or times out.
func (reader *BatchReader) ReadBatch(executionContext context.Context, paths []string) ([]catalog.Document, error) {
	if len(paths) == 0 {
		return []catalog.Document{}, nil
	}

	reader.logger.Debug(batchReadStartedMessageConstant, zap.Int(fileCountFieldConstant, len(paths)))

	uploadedAt := reader.clock.Now().UTC()
	documents := make([]catalog.Document, len(paths))

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(reader.configuration.Concurrency)
	for index, path := range paths {
		index, path := index, path
		group.Go(func() error {
			content, readError := reader.readWithTimeout(groupContext, path)
			if readError != nil {
				return fmt.Errorf(batchReadErrorTemplateConstant, ErrBatchReadFailed, path, readError)
			}
			documents[index] = buildDocument(index, path, content, uploadedAt)
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	var totalBytes int64
	for _, document := range documents {
		totalBytes += document.Size
	}
	reader.logger.Info(batchReadCompletedMessageConstant, zap.Int(fileCountFieldConstant, len(documents)), zap.Int64(totalBytesFieldConstant, totalBytes))
	return documents, nil
}

type readResult struct {
	content []byte
	err     error
}

// pendingFile hands an opened file between the reading goroutine and the caller
// waiting on the timeout. Whichever side finishes second closes the file.
type pendingFile struct {
	mutex     sync.Mutex
	file      io.ReadCloser
	abandoned bool
}

func (pending *pendingFile) attach(file io.ReadCloser) bool {
	pending.mutex.Lock()
	defer pending.mutex.Unlock()
	if pending.abandoned {
		return false
	}
	pending.file = file
	return true
}

func (pending *pendingFile) release() error {
	pending.mutex.Lock()
	defer pending.mutex.Unlock()
	if pending.abandoned || pending.file == nil {
		return nil
	}
	file := pending.file
	pending.file = nil
	return file.Close()
}

func (pending *pendingFile) abandon() {
	pending.mutex.Lock()
	defer pending.mutex.Unlock()
	pending.abandoned = true
	if pending.file != nil {
		pending.file.Close()
		pending.file = nil
	}
}

func (reader *BatchReader) readWithTimeout(executionContext context.Context, path string) ([]byte, error) {
	readContext, cancel := context.WithTimeout(executionContext, reader.configuration.ReadTimeout)
	defer cancel()

	pending := &pendingFile{}
	results := make(chan readResult, 1)
	go func() {
		file, openError := reader.fileSystem.Open(path)
		if openError != nil {
			results <- readResult{err: openError}
			return
		}
		if !pending.attach(file) {
			file.Close()
			return
		}
		content, readError := io.ReadAll(io.LimitReader(file, reader.configuration.MaxFileBytes+1))
		closeError := pending.release()
		results <- readResult{content: content, err: errors.Join(readError, closeError)}
	}()

	select {
	case result := <-results:
		if result.err != nil {
			return nil, result.err
		}
		if int64(len(result.content)) > reader.configuration.MaxFileBytes {
			return nil, fmt.Errorf(fileTooLargeTemplateConstant, ErrFileTooLarge, reader.configuration.MaxFileBytes)
		}
		return result.content, nil
	case <-readContext.Done():
		pending.abandon()
		if errors.Is(readContext.Err(), context.DeadlineExceeded) {
			return nil, ErrReadTimedOut
		}
		return nil, readContext.Err()
	}
}

func buildDocument(index int, path string, content []byte, uploadedAt time.Time) catalog.Document {
	mediaType := DetectMediaType(content)
	return catalog.Document{
		ID:         fmt.Sprintf(documentIdentifierTemplateConstant, uploadedAt.UnixMilli(), index),
		Name:       filepath.Base(path),
		Size:       int64(len(content)),
		Type:       mediaType,
		UploadedAt: uploadedAt.Format(uploadTimestampLayoutConstant),
		Data:       EncodeDataURL(mediaType, content),
	}
}

// DetectMediaType sniffs content and returns its media type without parameters.
func DetectMediaType(content []byte) string {
	detected := mimetype.Detect(content).String()
	mediaType, _, _ := strings.Cut(detected, mediaTypeParameterSeparator)
	return strings.TrimSpace(mediaType)
}
