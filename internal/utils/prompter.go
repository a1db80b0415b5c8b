package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	confirmationSuffixConstant            = " [y/N]: "
	confirmationReadErrorTemplateConstant = "failed to read confirmation: %w"
)

// IOConfirmationPrompter asks yes/no questions over a reader and writer pair.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and writer.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	if input == nil {
		input = strings.NewReader("")
	}
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm writes the prompt and reports whether the answer is y or yes. An empty
// answer or closed input declines.
func (prompter *IOConfirmationPrompter) Confirm(prompt string) (bool, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, strings.TrimRight(prompt, " ")+confirmationSuffixConstant); writeError != nil {
			return false, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && !errors.Is(readError, io.EOF) {
		return false, fmt.Errorf(confirmationReadErrorTemplateConstant, readError)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
