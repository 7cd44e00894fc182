package auth

import (
	"math"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
)

// ToHTTPCookies converts DevTools cookies for use in a net/http cookie jar.
// Session cookies keep a zero expiry.
func ToHTTPCookies(raw []*network.Cookie) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		if c == nil || c.Name == "" {
			continue
		}

		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			hc.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}

		cookies = append(cookies, hc)
	}
	return cookies
}
