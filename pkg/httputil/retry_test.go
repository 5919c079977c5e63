package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4), "capped at MaxDelay")
}

func TestRetryPolicy_Schedule(t *testing.T) {
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, DefaultRetryPolicy().Schedule())
	assert.Nil(t, RetryPolicy{MaxAttempts: 1}.Schedule())
}

func TestRetryPolicy_MultiplierBelowOne(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 0}
	assert.Equal(t, time.Second, p.Delay(3))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{
		{"none", "", 0, false},
		{"seconds", "3", 3 * time.Second, true},
		{"date", now.Add(2 * time.Second).Format(http.TimeFormat), 2 * time.Second, true},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			got, ok := retryAfter(resp, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := retryAfter(nil, now)
	assert.False(t, ok)
}

func TestRetryError(t *testing.T) {
	err := &RetryError{Attempts: 3, StatusCode: 503}
	assert.Equal(t, "giving up after 3 attempts: HTTP 503", err.Error())
}
