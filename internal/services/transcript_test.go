package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTranscript(t *testing.T) {
	assert.False(t, ValidTranscript(""))
	assert.False(t, ValidTranscript("   "))
	assert.False(t, ValidTranscript(" a "))
	assert.True(t, ValidTranscript("ok"))
	assert.True(t, ValidTranscript("रवि"))
}

func TestCleanTranscript(t *testing.T) {
	assert.Equal(t, "Ravi kumar", CleanTranscript("  ravi   kumar "))
	assert.Equal(t, "Electrician", CleanTranscript("electrician"))
	assert.Equal(t, "", CleanTranscript("   "))
}
