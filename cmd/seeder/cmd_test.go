package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/func/seeder/config"
	"github.com/func/seeder/journal"
	"github.com/func/seeder/provider/openstack"
	"github.com/func/seeder/resource"
	"github.com/google/go-cmp/cmp"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(files ...string) config.Options {
	o := config.DefaultOptions()
	o.Files = files
	o.Interface = "public"
	o.LogLevel = "error"
	return o
}

func TestRunValidate(t *testing.T) {
	path := writeSeed(t, `
project:
  - name: ops
    domain: ops
domain:
  - name: ops
`)
	opts := testOptions(path)
	opts.Prune = []string{"project"}

	var stdout, stderr bytes.Buffer
	code := runValidate(opts, &config.Loader{}, &stdout, &stderr)
	if code != journal.ExitOK {
		t.Fatalf("runValidate() = %d, stderr:\n%s", code, stderr.String())
	}
	want := `domain (1 item)
  ops
project (1 item, pruned)
  ops/ops
2 items in 2 kinds
`
	if diff := cmp.Diff(stdout.String(), want); diff != "" {
		t.Errorf("Output does not match (-got +want)\n%s", diff)
	}
}

func TestRunValidate_errors(t *testing.T) {
	path := writeSeed(t, `
projects:
  - name: ops
flavor:
  - name: m1
    ram: 0
`)
	var stdout, stderr bytes.Buffer
	code := runValidate(testOptions(path), &config.Loader{}, &stdout, &stderr)
	if code != journal.ExitConfig {
		t.Fatalf("runValidate() = %d, want %d", code, journal.ExitConfig)
	}
	for _, want := range []string{
		`unknown kind "projects" (did you mean "project"?)`,
		`missing required field "vcpus"`,
		`does not satisfy "min=1"`,
	} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("Errors do not contain %q:\n%s", want, stderr.String())
		}
	}
}

func TestRunApply(t *testing.T) {
	noSession := func() (*openstack.Session, error) {
		return nil, resource.Errorf(resource.AuthInvalid, "no credentials")
	}
	tests := []struct {
		name string
		seed string
		want int
	}{
		{"Empty", "domain: []\n", journal.ExitOK},
		{"Invalid", "domains: []\n", journal.ExitConfig},
		{"NoCredentials", "domain:\n  - name: ops\n", journal.ExitAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSeed(t, tt.seed)
			var stdout, stderr bytes.Buffer
			got := runApply(context.Background(), testOptions(path), noSession, &stdout, &stderr)
			if got != tt.want {
				t.Errorf("runApply() = %d, want %d; stderr:\n%s", got, tt.want, stderr.String())
			}
		})
	}
}

func TestListKinds(t *testing.T) {
	var buf bytes.Buffer
	if err := listKinds(&buf, []string{"user"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"user", "service=identity", "password", "create-only sensitive", "ref=project"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output does not contain %q:\n%s", want, out)
		}
	}

	if err := listKinds(&buf, []string{"nope"}); resource.ClassOf(err) != resource.UnknownKind {
		t.Errorf("listKinds(nope) error = %v, want UnknownKind", err)
	}
}
