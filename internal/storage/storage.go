package storage

import (
	"context"
	"fmt"
	"io"
)

const ContentTypeWAV = "audio/wav"

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// RecordingObject names the archived answer to field on call callID.
func RecordingObject(callID, field string) string {
	return fmt.Sprintf("recordings/%s/%s.wav", callID, field)
}
