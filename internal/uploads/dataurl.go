package uploads

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	dataURLSchemeConstant              = "data:"
	dataURLBase64MarkerConstant        = ";base64"
	dataURLPayloadSeparatorConstant    = ","
	dataURLDecodeErrorTemplateConstant = "%w: %w"
)

// ErrMalformedDataURL indicates a stored document payload is not a base64 data URL.
var ErrMalformedDataURL = errors.New("malformed document data URL")

// EncodeDataURL renders content as a base64 data URL of the given media type.
func EncodeDataURL(mediaType string, content []byte) string {
	return fmt.Sprintf(dataURLTemplateConstant, mediaType, base64.StdEncoding.EncodeToString(content))
}

// DecodeDataURL returns the media type and decoded bytes of a base64 data URL.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, dataURLSchemeConstant) {
		return "", nil, ErrMalformedDataURL
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(dataURL, dataURLSchemeConstant), dataURLPayloadSeparatorConstant)
	if !found || !strings.HasSuffix(header, dataURLBase64MarkerConstant) {
		return "", nil, ErrMalformedDataURL
	}

	content, decodeError := base64.StdEncoding.DecodeString(payload)
	if decodeError != nil {
		return "", nil, fmt.Errorf(dataURLDecodeErrorTemplateConstant, ErrMalformedDataURL, decodeError)
	}
	return strings.TrimSuffix(header, dataURLBase64MarkerConstant), content, nil
}
