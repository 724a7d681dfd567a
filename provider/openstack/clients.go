package openstack

import (
	"context"
	"errors"
	"time"

	"github.com/func/seeder/internal/task"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	perrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Clients creates and caches a client per service.
//
// Clients are created on first use: the endpoint is looked up in the
// service catalog of the session and the microversion is negotiated with the
// service, if it uses microversions.
type Clients struct {
	Session *Session

	// Interface selects public, internal or admin endpoints.
	Interface string

	// Region selects the region of endpoints. If not set, the first
	// endpoint of a service is used.
	Region string

	// CallTimeout limits every call attempt.
	CallTimeout time.Duration

	// Services are the services clients can be created for. If not set,
	// DefaultServices are used.
	Services []*Service

	// Logger logs client creation and retries. If not set, logs are
	// discarded.
	Logger *zap.Logger

	clients task.Group[*client]
}

// A client is a service client with retries.
type client struct {
	*gophercloud.ServiceClient
	service *Service
	retrier *retry.Retrier
	version version
}

// Check prepares the client of a service. It returns resource.ErrSkipped if
// an optional service is not in the catalog.
func (c *Clients) Check(ctx context.Context, service string) error {
	_, err := c.client(ctx, service)
	return err
}

// Concurrent reports whether a service is safe for concurrent writes.
func (c *Clients) Concurrent(service string) bool {
	svc := c.service(service)
	return svc != nil && svc.Concurrent
}

// Microversion returns the negotiated microversion of a service, or an
// empty string if the service does not use microversions.
func (c *Clients) Microversion(ctx context.Context, service string) (string, error) {
	cl, err := c.client(ctx, service)
	if err != nil {
		return "", err
	}
	return cl.version.String(), nil
}

func (c *Clients) service(name string) *Service {
	services := c.Services
	if services == nil {
		services = DefaultServices
	}
	for _, s := range services {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (c *Clients) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Clients) client(ctx context.Context, name string) (*client, error) {
	return c.clients.Do(name, func() (*client, error) {
		svc := c.service(name)
		if svc == nil {
			return nil, resource.Errorf(resource.ServiceUnavailable, "unknown service %q", name)
		}
		logger := c.logger().With(zap.String("service", name))

		pc, err := c.Session.Provider(ctx)
		if err != nil {
			return nil, err
		}

		availability := gophercloud.AvailabilityPublic
		if c.Interface != "" {
			availability = gophercloud.Availability(c.Interface)
		}
		sc, err := svc.New(pc, gophercloud.EndpointOpts{
			Region:       c.Region,
			Availability: availability,
		})
		if err != nil {
			if isEndpointNotFound(err) {
				if svc.Optional {
					return nil, resource.ErrSkipped
				}
				return nil, resource.Errorf(resource.ServiceUnavailable, "no %s endpoint for the %s interface in the service catalog", name, availability)
			}
			return nil, resource.Classify(resource.ServiceUnavailable, perrors.Wrapf(err, "create %s client", name))
		}

		policy := svc.Policy
		policy.Timeout = c.CallTimeout
		if policy.Timeout == 0 {
			policy.Timeout = defaultCallTimeout
		}
		cl := &client{
			ServiceClient: sc,
			service:       svc,
			retrier: &retry.Retrier{
				Policy: policy,
				Auth:   c.Session,
				Logger: logger,
			},
		}
		if svc.Rate > 0 {
			cl.retrier.Limiter = rate.NewLimiter(svc.Rate, svc.Burst)
		}

		if svc.MaxVersion != "" {
			v, err := negotiate(ctx, cl.retrier, sc, svc)
			if err != nil {
				if resource.ClassOf(err) == resource.VersionIncompatible {
					return nil, err
				}
				return nil, resource.Classify(resource.ServiceUnavailable, perrors.Wrapf(err, "discover %s versions", name))
			}
			cl.version = v
			sc.Microversion = v.String()
		}

		logger.Info("Client ready", zap.String("endpoint", sc.Endpoint), zap.String("microversion", cl.version.String()))
		return cl, nil
	})
}

func isEndpointNotFound(err error) bool {
	var v gophercloud.ErrEndpointNotFound
	if errors.As(err, &v) {
		return true
	}
	var p *gophercloud.ErrEndpointNotFound
	return errors.As(err, &p)
}

// atLeast reports whether the negotiated microversion is at least v.
func (c *client) atLeast(v string) bool {
	want, err := parseVersion(v)
	if err != nil {
		return false
	}
	return !c.version.Less(want)
}
