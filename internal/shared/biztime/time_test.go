package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NowUTC().Location())
}

func TestLocation(t *testing.T) {
	loc := Location()
	if loc != time.UTC {
		assert.Equal(t, DefaultTimezone, loc.String())
	}
	// stable across calls
	assert.Same(t, loc, Location())
}
