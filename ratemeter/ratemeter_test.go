package ratemeter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/horup/hostess/ratemeter"
)

func TestMeterStartsAtZero(t *testing.T) {
	m := ratemeter.New()
	assert.Equal(t, uint64(0), m.PerSecond())
}

func TestMeterDoesNotCreditCurrentWindow(t *testing.T) {
	m := ratemeter.New()
	m.Sample(100)
	// The window is still open; PerSecond reports the most recently
	// *completed* window, which is still empty.
	assert.Equal(t, uint64(0), m.PerSecond())
}

func TestMeterRollsWindowAfterOneSecond(t *testing.T) {
	m := ratemeter.New()
	m.Sample(50)
	m.Sample(25)

	time.Sleep(1100 * time.Millisecond)

	assert.Equal(t, uint64(75), m.PerSecond())
}

func TestMeterIdleWindowReadsZero(t *testing.T) {
	m := ratemeter.New()
	m.Sample(10)

	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, uint64(10), m.PerSecond())

	// A second full window passes with no further samples; it reads
	// back empty rather than re-reporting the earlier window.
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, uint64(0), m.PerSecond())
}
