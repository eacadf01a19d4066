package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateSpeaker(t *testing.T) {
	loud := []float32{0.9, -0.9, 0.9, -0.9}
	quiet := []float32{0.1, -0.1, 0.1, -0.1}
	end := 4 * time.Second / 16000

	assert.Equal(t, "0", estimateSpeaker([][]float32{loud, quiet}, 0, end))
	assert.Equal(t, "1", estimateSpeaker([][]float32{quiet, loud}, 0, end))
	assert.Equal(t, "?", estimateSpeaker([][]float32{loud, loud}, 0, end))
	assert.Equal(t, "?", estimateSpeaker([][]float32{{}, {}}, 0, end))
}

func TestSampleIndexClamps(t *testing.T) {
	assert.Equal(t, 0, sampleIndex(-time.Second, 100))
	assert.Equal(t, 99, sampleIndex(time.Hour, 100))
	assert.Equal(t, 16, sampleIndex(time.Millisecond, 100))
}
