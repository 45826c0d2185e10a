package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yoockh/labourline/internal/storage"
)

const maxRecordingBytes = 10 << 20

// RecordingFetcher downloads call recordings from the telephony provider.
type RecordingFetcher struct {
	HTTP      *http.Client
	Username  string
	Password  string
	Extension string
}

func NewRecordingFetcher(accountSID, authToken string) *RecordingFetcher {
	return &RecordingFetcher{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Username:  accountSID,
		Password:  authToken,
		Extension: ".wav",
	}
}

// URL returns the download URL for a recording reference.
func (f *RecordingFetcher) URL(ref string) string {
	if f.Extension == "" || strings.HasSuffix(ref, f.Extension) {
		return ref
	}
	return ref + f.Extension
}

func (f *RecordingFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if f.Username == "" || f.Password == "" {
		return nil, fmt.Errorf("recording credentials are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(ref), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(f.Username, f.Password)
	req.Header.Set("Accept", "audio/wav")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recording download: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordingBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("recording download: empty body")
	}
	return body, nil
}

// Archive keeps a copy of a fetched recording.
func Archive(ctx context.Context, up storage.Uploader, callID, field string, audio []byte) (string, error) {
	return up.Upload(ctx, storage.RecordingObject(callID, field), storage.ContentTypeWAV, bytes.NewReader(audio))
}
