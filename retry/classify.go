package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/func/seeder/resource"
	"github.com/gophercloud/gophercloud/v2"
)

// Classify returns the class of an error returned by a remote call, and the
// delay requested by the server through a Retry-After header, if any.
//
//	2xx                  no error
//	400 403 404 409 422  PermanentRemote
//	401                  AuthInvalid
//	408 429 5xx          TransientRemote
//	transport errors     TransientRemote
//
// Other responses are permanent. An error that already carries a class keeps
// it.
func Classify(err error) (resource.Class, time.Duration) {
	if err == nil {
		return resource.ClassNone, 0
	}
	if c := resource.ClassOf(err); c != resource.ClassNone {
		return c, 0
	}

	if code, header, ok := StatusCode(err); ok {
		switch {
		case code == http.StatusUnauthorized:
			return resource.AuthInvalid, 0
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
			return resource.TransientRemote, retryAfter(header, time.Now())
		default:
			return resource.PermanentRemote, 0
		}
	}

	if errors.Is(err, context.Canceled) {
		return resource.Canceled, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resource.TransientRemote, 0
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return resource.TransientRemote, 0
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resource.TransientRemote, 0
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return resource.TransientRemote, 0
	}
	return resource.PermanentRemote, 0
}

// StatusCode returns the HTTP status code and response header of an
// unexpected response returned by gophercloud.
func StatusCode(err error) (int, http.Header, bool) {
	var rc gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &rc) {
		return rc.Actual, rc.ResponseHeader, true
	}
	var prc *gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &prc) && prc != nil {
		return prc.Actual, prc.ResponseHeader, true
	}
	return 0, nil, false
}

// IsStatus reports whether err is an unexpected response with the given code.
func IsStatus(err error, code int) bool {
	c, _, ok := StatusCode(err)
	return ok && c == code
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Message extracts a human readable message from a remote error. OpenStack
// services return the message in varying JSON shapes; the first "message"
// or "faultstring" found is used.
func Message(err error) string {
	code, _, ok := StatusCode(err)
	if !ok {
		return err.Error()
	}
	var rc gophercloud.ErrUnexpectedResponseCode
	var body []byte
	if errors.As(err, &rc) {
		body = rc.Body
	} else {
		var prc *gophercloud.ErrUnexpectedResponseCode
		if errors.As(err, &prc) {
			body = prc.Body
		}
	}
	if msg := bodyMessage(body); msg != "" {
		return strconv.Itoa(code) + " " + http.StatusText(code) + ": " + msg
	}
	return strconv.Itoa(code) + " " + http.StatusText(code)
}
