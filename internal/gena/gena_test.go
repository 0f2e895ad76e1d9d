package gena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		wantSec int
		wantOK  bool
	}{
		{"Second-1800", 1800, true},
		{"Second-infinite", InfiniteTimeout, true},
		{"second-60", 0, false},
		{"Second--5", 0, false},
		{"bogus", 0, false},
	}
	for _, tt := range tests {
		sec, ok := ParseTimeout(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if ok {
			assert.Equal(t, tt.wantSec, sec, tt.in)
		}
	}
}

func TestFormatTimeout(t *testing.T) {
	assert.Equal(t, "Second-1800", FormatTimeout(1800))
	assert.Equal(t, "Second-infinite", FormatTimeout(InfiniteTimeout))
}

func TestRenewalDelayUsesFraction(t *testing.T) {
	got := RenewalDelay(1800*time.Second, 0.75)
	assert.Equal(t, 1350*time.Second, got)
}

func TestRenewalDelayNonPositiveGrant(t *testing.T) {
	assert.Equal(t, time.Duration(0), RenewalDelay(0, 0.75))
}

func TestBuildAndParsePropertySet(t *testing.T) {
	body := BuildPropertySet([]Property{
		{Name: "LastChange", Value: "<Event xmlns=\"urn:schemas-upnp-org:metadata-1-0/AVT/\"/>"},
		{Name: "TransportState", Value: "PLAYING"},
	})

	props, err := ParsePropertySet(body)
	assert.NoError(t, err)
	if assert.Len(t, props, 2) {
		assert.Equal(t, "LastChange", props[0].Name)
		assert.Equal(t, "TransportState", props[1].Name)
		assert.Equal(t, "PLAYING", props[1].Value)
	}
}
