package syncengine

import (
	"sync"
	"time"
)

// Exported constants.
const (
	// RateWindowSize is the number of recent uploads the rolling rate covers.
	RateWindowSize = 5
)

// RateSample is one finished upload.
type RateSample struct {
	Timestamp        time.Time
	BytesTransferred int64
	Elapsed          time.Duration
}

// TransferMetrics keeps a rolling window of recent uploads so the displayed rate
// follows current network conditions rather than the process average.
type TransferMetrics struct {
	mu            sync.Mutex
	recent        []RateSample
	totalBytes    int64
	totalElapsed  time.Duration
	uploadedFiles int
}

// Record adds a finished upload.
func (m *TransferMetrics) Record(sample RateSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent = append(m.recent, sample)
	if len(m.recent) > RateWindowSize {
		m.recent = m.recent[len(m.recent)-RateWindowSize:]
	}

	m.totalBytes += sample.BytesTransferred
	m.totalElapsed += sample.Elapsed
	m.uploadedFiles++
}

// Rate returns bytes per second over the rolling window, or 0 with no samples.
func (m *TransferMetrics) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		bytes   int64
		elapsed time.Duration
	)

	for _, sample := range m.recent {
		bytes += sample.BytesTransferred
		elapsed += sample.Elapsed
	}

	return rate(bytes, elapsed)
}

// Totals returns the files, bytes and average rate recorded over the process lifetime.
func (m *TransferMetrics) Totals() (files int, bytes int64, bytesPerSecond float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.uploadedFiles, m.totalBytes, rate(m.totalBytes, m.totalElapsed)
}

func rate(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(bytes) / elapsed.Seconds()
}
