package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit transient", NewTransientError(eris.New("http 503"), 503), true},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("http 429"), 429), "download"), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"string heuristic", eris.New("read tcp: connection reset by peer"), true},
		{"dns failure", eris.New("dial tcp: lookup object.files.data.gouv.fr: no such host"), true},
		{"permanent", eris.New("bucket configuration rejected"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 409, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
