package stt

import "context"

// Provider recognizes speech in raw audio.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

// LowConfidence is the confidence under which a transcript is logged as doubtful.
const LowConfidence = 0.5
