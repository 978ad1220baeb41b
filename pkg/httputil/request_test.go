package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryString(t *testing.T) {
	r := httptest.NewRequest("GET", "/chart?theme=dark", nil)
	assert.Equal(t, "dark", QueryString(r, "theme", "light"))
	assert.Equal(t, "light", QueryString(r, "missing", "light"))
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/chart?width=800&height=abc", nil)

	width, err := QueryInt(r, "width", 400)
	require.NoError(t, err)
	assert.Equal(t, 800, width)

	def, err := QueryInt(r, "missing", 400)
	require.NoError(t, err)
	assert.Equal(t, 400, def)

	_, err = QueryInt(r, "height", 400)
	assert.Error(t, err)
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/m?a=true&b=1&c=false&d=yes", nil)
	assert.True(t, QueryBool(r, "a"))
	assert.True(t, QueryBool(r, "b"))
	assert.False(t, QueryBool(r, "c"))
	assert.False(t, QueryBool(r, "d"))
	assert.False(t, QueryBool(r, "missing"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:52100"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", ClientIP(r))
}
