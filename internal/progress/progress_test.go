package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestReporter_Markers(t *testing.T) {
	var markers bytes.Buffer
	r := New(50, WithWriter(&markers))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				r.Failed()
				return
			}
			r.Done()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, strings.Repeat(".", 50), markers.String())
	assert.Equal(t, 45, r.Completed())
	assert.Equal(t, 5, r.Failures())
}

func TestReporter_RateLimitedLogs(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := New(100, WithLogger(logger), WithInterval(time.Hour))
	for i := 0; i < 100; i++ {
		r.Done()
	}

	// The burst allows exactly one line per interval.
	require.Equal(t, 1, strings.Count(logs.String(), "msg=progress"))
	assert.Contains(t, logs.String(), "total=100")
}

func TestReporter_EveryItem(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := New(3, WithLogger(logger), WithInterval(0))
	r.Done()
	r.Done()
	r.Failed()

	assert.Equal(t, 3, strings.Count(logs.String(), "msg=progress"))
	assert.Contains(t, logs.String(), "failed=1")
}
