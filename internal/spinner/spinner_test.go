package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_ShowsUpdatedMessage(t *testing.T) {
	old := interval
	interval = time.Millisecond
	t.Cleanup(func() { interval = old })

	var out lockedBuffer
	s := Start(&out, "Optimizing 0/2 elements")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Optimizing 0/2 elements")
	}, time.Second, time.Millisecond)

	s.Update("Optimizing 1/2 elements (Cu)")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Optimizing 1/2 elements (Cu)")
	}, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()

	got := out.String()
	assert.True(t, strings.HasSuffix(got, "\r"), "line is cleared on stop")
	assert.True(t, strings.HasPrefix(got, "\r"+frames[0]))
}

func TestSpinner_StopBeforeFirstFrame(t *testing.T) {
	var out lockedBuffer
	s := Start(&out, "Loading")
	s.Stop()
	assert.Equal(t, "\r\r", out.String())
}
