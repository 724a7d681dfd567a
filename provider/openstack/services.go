package openstack

import (
	"time"

	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"golang.org/x/time/rate"
)

// A Service describes how the clients of a catalog service are created and
// used.
type Service struct {
	// Name is the name kinds refer to the service by.
	Name string

	// Optional services may be missing from the catalog. Kinds hosted by a
	// missing optional service are skipped.
	Optional bool

	// MinVersion and MaxVersion are the microversions supported by the
	// drivers. If the service does not report a range, DefaultVersion is
	// used. Services without microversions leave all three empty.
	MinVersion, MaxVersion, DefaultVersion string

	// Policy is the retry policy of calls to the service. Its timeout is
	// replaced by the per-call timeout of the run.
	Policy retry.Policy

	// Rate limits requests to the service, with bursts of Burst requests.
	Rate  rate.Limit
	Burst int

	// Concurrent is set if the service is safe for concurrent writes.
	Concurrent bool

	// New creates a client for the endpoint matching the options.
	New func(*gophercloud.ProviderClient, gophercloud.EndpointOpts) (*gophercloud.ServiceClient, error)
}

func policy(attempts int) retry.Policy {
	p := retry.DefaultPolicy
	p.MaxAttempts = attempts
	return p
}

// DefaultServices lists the services used by the built-in kinds.
var DefaultServices = []*Service{
	{
		Name:       "identity",
		Policy:     policy(4),
		Rate:       20,
		Burst:      5,
		Concurrent: true,
		New:        openstack.NewIdentityV3,
	},
	{
		Name:           "compute",
		MinVersion:     "2.1",
		MaxVersion:     "2.61",
		DefaultVersion: "2.1",
		Policy:         policy(5),
		Rate:           10,
		Burst:          5,
		Concurrent:     true,
		New:            openstack.NewComputeV2,
	},
	{
		Name:       "network",
		Policy:     policy(5),
		Rate:       10,
		Burst:      5,
		Concurrent: true,
		New:        openstack.NewNetworkV2,
	},
	{
		Name:       "dns",
		Optional:   true,
		Policy:     policy(5),
		Rate:       10,
		Burst:      5,
		Concurrent: true,
		New:        openstack.NewDNSV2,
	},
	{
		Name:           "placement",
		MinVersion:     "1.6",
		MaxVersion:     "1.39",
		DefaultVersion: "1.6",
		Policy:         policy(5),
		Rate:           10,
		Burst:          5,
		// Trait updates carry the provider generation.
		Concurrent: false,
		New:        openstack.NewPlacementV1,
	},
	{
		Name:           "sharev2",
		Optional:       true,
		MinVersion:     "2.0",
		MaxVersion:     "2.65",
		DefaultVersion: "2.0",
		Policy:         policy(5),
		Rate:           10,
		Burst:          5,
		Concurrent:     true,
		New:            openstack.NewSharedFileSystemV2,
	},
	{
		Name:       "volumev3",
		Policy:     policy(5),
		Rate:       10,
		Burst:      5,
		Concurrent: true,
		New:        openstack.NewBlockStorageV3,
	},
}

// defaultCallTimeout limits calls when the clients have no timeout set.
const defaultCallTimeout = 60 * time.Second
