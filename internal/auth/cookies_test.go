package auth

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPCookies(t *testing.T) {
	raw := []*network.Cookie{
		{Name: "laravel_session", Value: "abc", Domain: "united-cal.math.ncu.edu.tw", Path: "/", HTTPOnly: true, Session: true},
		{Name: "XSRF-TOKEN", Value: "tok", Domain: ".ncu.edu.tw", Path: "/", Secure: true, Expires: 1767225600.5},
		nil,
		{Name: "", Value: "ignored"},
	}

	cookies := ToHTTPCookies(raw)
	require.Len(t, cookies, 2)

	assert.Equal(t, "laravel_session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Expires.IsZero())

	assert.Equal(t, "XSRF-TOKEN", cookies[1].Name)
	assert.Equal(t, ".ncu.edu.tw", cookies[1].Domain)
	assert.True(t, cookies[1].Secure)
	assert.Equal(t, time.Unix(1767225600, 500_000_000), cookies[1].Expires)
}
