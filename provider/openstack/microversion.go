package openstack

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/pkg/errors"
)

// A version is a microversion, major.minor.
type version struct {
	major, minor int
}

func parseVersion(s string) (version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return version{}, errors.Errorf("invalid microversion %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return version{}, errors.Errorf("invalid microversion %q", s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return version{}, errors.Errorf("invalid microversion %q", s)
	}
	return version{major, minor}, nil
}

func (v version) String() string {
	if v.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

func (v version) IsZero() bool { return v == version{} }

func (v version) Less(other version) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	return v.minor < other.minor
}

// versionInfo is the version document returned by a service root. Services
// report either a single version or a list of versions.
type versionInfo struct {
	Version  *versionEntry  `json:"version"`
	Versions []versionEntry `json:"versions"`
}

type versionEntry struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	MinVersion string `json:"min_version"`
	Version    string `json:"version"`
	MaxVersion string `json:"max_version"`
}

func (e versionEntry) max() string {
	if e.MaxVersion != "" {
		return e.MaxVersion
	}
	return e.Version
}

// negotiate selects the highest microversion supported by both the service
// and the drivers. If the service does not report a range, the default
// version of the service is used.
func negotiate(ctx context.Context, r *retry.Retrier, sc *gophercloud.ServiceClient, svc *Service) (version, error) {
	def, err := parseVersion(svc.DefaultVersion)
	if err != nil {
		return version{}, err
	}
	want := [2]version{}
	if want[0], err = parseVersion(svc.MinVersion); err != nil {
		return version{}, err
	}
	if want[1], err = parseVersion(svc.MaxVersion); err != nil {
		return version{}, err
	}

	var info versionInfo
	err = r.Do(ctx, func(ctx context.Context) error {
		info = versionInfo{}
		_, err := sc.Request(ctx, http.MethodGet, sc.Endpoint, &gophercloud.RequestOpts{
			JSONResponse: &info,
			OkCodes:      []int{http.StatusOK, http.StatusMultipleChoices},
		})
		return err
	})
	if err != nil {
		if retry.IsStatus(err, http.StatusNotFound) {
			return def, nil
		}
		return version{}, err
	}

	entry, ok := info.entry(want[0].major)
	if !ok || entry.MinVersion == "" || entry.max() == "" {
		return def, nil
	}
	have := [2]version{}
	if have[0], err = parseVersion(entry.MinVersion); err != nil {
		return def, nil
	}
	if have[1], err = parseVersion(entry.max()); err != nil {
		return def, nil
	}

	lo, hi := want[0], want[1]
	if lo.Less(have[0]) {
		lo = have[0]
	}
	if have[1].Less(hi) {
		hi = have[1]
	}
	if hi.Less(lo) {
		return version{}, resource.Errorf(
			resource.VersionIncompatible,
			"%s supports microversions %s to %s, need %s to %s",
			svc.Name, have[0], have[1], want[0], want[1],
		)
	}
	return hi, nil
}

// entry returns the version entry for a major version. A single entry is
// used as is; from a list the current entry of the major version is
// preferred.
func (i versionInfo) entry(major int) (versionEntry, bool) {
	if i.Version != nil {
		return *i.Version, true
	}
	var found *versionEntry
	for n := range i.Versions {
		e := &i.Versions[n]
		if idMajor(e.ID) != major {
			continue
		}
		if found == nil || strings.EqualFold(e.Status, "CURRENT") {
			found = e
		}
	}
	if found == nil {
		return versionEntry{}, false
	}
	return *found, true
}

// idMajor returns the major version of a version id such as v2.1, or -1.
func idMajor(id string) int {
	id = strings.TrimPrefix(id, "v")
	if dot := strings.Index(id, "."); dot >= 0 {
		id = id[:dot]
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return -1
	}
	return n
}
