package retry_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resource.Class
	}{
		{"400", status(400, ""), resource.PermanentRemote},
		{"401", status(401, ""), resource.AuthInvalid},
		{"403", status(403, ""), resource.PermanentRemote},
		{"404", status(404, ""), resource.PermanentRemote},
		{"408", status(408, ""), resource.TransientRemote},
		{"409", status(409, ""), resource.PermanentRemote},
		{"422", status(422, ""), resource.PermanentRemote},
		{"429", status(429, ""), resource.TransientRemote},
		{"500", status(500, ""), resource.TransientRemote},
		{"503", status(503, ""), resource.TransientRemote},
		{"Pointer", &gophercloud.ErrUnexpectedResponseCode{Actual: 502}, resource.TransientRemote},
		{"Wrapped", errors.Wrap(status(503, ""), "create"), resource.TransientRemote},
		{"Transport", &url.Error{Op: "Get", URL: "http://x", Err: fmt.Errorf("connection refused")}, resource.TransientRemote},
		{"EOF", errors.Wrap(io.ErrUnexpectedEOF, "read"), resource.TransientRemote},
		{"Deadline", context.DeadlineExceeded, resource.TransientRemote},
		{"Canceled", context.Canceled, resource.Canceled},
		{"Classified", resource.Errorf(resource.AmbiguousRemote, "two"), resource.AmbiguousRemote},
		{"Unknown", fmt.Errorf("bad"), resource.PermanentRemote},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := retry.Classify(tc.err)
			if got != tc.want {
				t.Errorf("Classify() = %s, want = %s", got, tc.want)
			}
		})
	}
}

func TestClassify_retryAfter(t *testing.T) {
	err := gophercloud.ErrUnexpectedResponseCode{
		Actual:         429,
		ResponseHeader: http.Header{"Retry-After": []string{"2"}},
	}
	_, after := retry.Classify(err)
	if after != 2*time.Second {
		t.Errorf("Retry-After = %s, want = %s", after, 2*time.Second)
	}

	date := gophercloud.ErrUnexpectedResponseCode{
		Actual:         503,
		ResponseHeader: http.Header{"Retry-After": []string{time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)}},
	}
	_, after = retry.Classify(date)
	if after < 59*time.Minute {
		t.Errorf("Retry-After = %s, want about an hour", after)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Keystone", status(403, `{"error": {"code": 403, "message": "You are not authorized", "title": "Forbidden"}}`), "403 Forbidden: You are not authorized"},
		{"Nova", status(409, `{"conflictingRequest": {"code": 409, "message": "Flavor with name m1 already exists."}}`), "409 Conflict: Flavor with name m1 already exists."},
		{"Neutron", status(400, `{"NeutronError": {"type": "HTTPBadRequest", "message": "Invalid input", "detail": ""}}`), "400 Bad Request: Invalid input"},
		{"Empty", status(503, ""), "503 Service Unavailable"},
		{"Plain", fmt.Errorf("boom"), "boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := retry.Message(tc.err); got != tc.want {
				t.Errorf("Got = %q, want = %q", got, tc.want)
			}
		})
	}
}
