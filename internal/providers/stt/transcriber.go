package stt

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/storage"
	"github.com/yoockh/labourline/internal/utils"
)

// Fetcher resolves a recording reference to audio bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// RecordingTranscriber turns a recording reference into text: fetch, archive
// (when an uploader is set), recognize.
type RecordingTranscriber struct {
	Fetcher  Fetcher
	Provider Provider
	Archive  storage.Uploader
	Logger   *logrus.Logger
}

func (t *RecordingTranscriber) Transcribe(ctx context.Context, callID, field, ref, locale string) (string, error) {
	const op = "RecordingTranscriber.Transcribe"

	log := t.Logger.WithFields(logrus.Fields{"call_id": callID, "field": field})

	audio, err := t.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionUnavailable, op, "failed to fetch recording", err)
	}

	if t.Archive != nil {
		if path, err := Archive(ctx, t.Archive, callID, field, audio); err != nil {
			log.WithError(err).Warn("recording archive failed")
		} else {
			log.WithField("path", path).Debug("recording archived")
		}
	}

	text, conf, err := t.Provider.Transcribe(ctx, audio, locale)
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionUnavailable, op, "speech recognition failed", err)
	}
	if conf < LowConfidence {
		log.WithFields(logrus.Fields{"confidence": conf, "text": text}).Warn("low confidence transcription")
	}
	return text, nil
}
