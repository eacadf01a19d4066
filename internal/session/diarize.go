package session

import (
	"math"
	"time"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// speakerEnergyRatio is how much louder one channel must be to be attributed
// a segment.
const speakerEnergyRatio = 1.1

// estimateSpeaker labels the span [t0, t1] with the louder stereo channel,
// "0" for left and "1" for right, or "?" when neither dominates.
func estimateSpeaker(stereo [][]float32, t0, t1 time.Duration) string {
	n := len(stereo[0])
	if len(stereo[1]) < n {
		n = len(stereo[1])
	}
	if n == 0 {
		return "?"
	}

	is0 := sampleIndex(t0, n)
	is1 := sampleIndex(t1, n)

	var e0, e1 float64
	for j := is0; j < is1; j++ {
		e0 += math.Abs(float64(stereo[0][j]))
		e1 += math.Abs(float64(stereo[1][j]))
	}

	switch {
	case e0 > speakerEnergyRatio*e1:
		return "0"
	case e1 > speakerEnergyRatio*e0:
		return "1"
	default:
		return "?"
	}
}

func sampleIndex(t time.Duration, n int) int {
	i := int(int64(t) * engine.SampleRate / int64(time.Second))
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
