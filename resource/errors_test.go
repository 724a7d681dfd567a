package resource_test

import (
	"fmt"
	"testing"

	"github.com/func/seeder/resource"
	"github.com/pkg/errors"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resource.Class
	}{
		{"Nil", nil, resource.ClassNone},
		{"Plain", fmt.Errorf("boom"), resource.ClassNone},
		{"Direct", resource.Errorf(resource.AuthInvalid, "no"), resource.AuthInvalid},
		{"Wrapped", errors.Wrap(resource.Errorf(resource.PermanentRemote, "403"), "create"), resource.PermanentRemote},
		{"Outer", resource.Classify(resource.Conflict, resource.Errorf(resource.PermanentRemote, "409")), resource.Conflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resource.ClassOf(tc.err); got != tc.want {
				t.Errorf("ClassOf() = %s, want = %s", got, tc.want)
			}
		})
	}
}

func TestAttemptsOf(t *testing.T) {
	err := errors.Wrap(&resource.Error{Class: resource.TransientRemote, Attempts: 5, Err: fmt.Errorf("503")}, "create")
	if got := resource.AttemptsOf(err); got != 5 {
		t.Errorf("AttemptsOf() = %d, want = %d", got, 5)
	}
	if got := resource.AttemptsOf(fmt.Errorf("x")); got != 1 {
		t.Errorf("AttemptsOf() = %d, want = %d", got, 1)
	}
}

func TestError_Error(t *testing.T) {
	err := &resource.Error{
		Class:    resource.TransientRemote,
		Kind:     "project",
		Key:      resource.Key{"Default", "alpha"},
		Attempts: 3,
		Err:      fmt.Errorf("503 Service Unavailable"),
	}
	want := "project Default/alpha: 503 Service Unavailable (after 3 attempts)"
	if got := err.Error(); got != want {
		t.Errorf("Got = %q, want = %q", got, want)
	}
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  resource.Key
		want string
	}{
		{resource.Key{"Default", "alpha"}, "Default/alpha"},
		{resource.Key{"admin", "", "", "alpha@Default", ""}, "admin/alpha@Default"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("Got = %q, want = %q", got, tc.want)
		}
	}
}
