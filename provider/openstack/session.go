package openstack

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/func/seeder/internal/task"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// A Session holds the authenticated provider client shared by every service
// client.
//
// Authentication happens on first use, so a run that makes no remote calls
// never authenticates.
type Session struct {
	AuthOptions gophercloud.AuthOptions
	TLS         *tls.Config
	Logger      *zap.Logger

	provider task.Group[*gophercloud.ProviderClient]
	mu       sync.Mutex // Serializes reauthentication.
}

// NewSession creates a session that authenticates with the given options.
func NewSession(opts gophercloud.AuthOptions, tlsConfig *tls.Config) *Session {
	return &Session{AuthOptions: opts, TLS: tlsConfig}
}

// SessionFromEnv creates a session from the standard OpenStack environment
// variables. OS_CACERT sets a CA bundle to verify the server certificates
// with and OS_INSECURE disables verification.
func SessionFromEnv() (*Session, error) {
	opts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, resource.Classify(resource.AuthInvalid, errors.Wrap(err, "read credentials"))
	}
	cfg, err := tlsFromEnv(os.LookupEnv)
	if err != nil {
		return nil, resource.Classify(resource.AuthInvalid, err)
	}
	return NewSession(opts, cfg), nil
}

func tlsFromEnv(lookup func(string) (string, bool)) (*tls.Config, error) {
	var cfg *tls.Config
	if path, ok := lookup("OS_CACERT"); ok && path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read CA bundle")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in %s", path)
		}
		cfg = &tls.Config{RootCAs: pool}
	}
	if v, ok := lookup("OS_INSECURE"); ok && v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parse OS_INSECURE %q", v)
		}
		if insecure {
			if cfg == nil {
				cfg = &tls.Config{}
			}
			cfg.InsecureSkipVerify = true
		}
	}
	return cfg, nil
}

// ProviderSession wraps an already authenticated provider client.
func ProviderSession(pc *gophercloud.ProviderClient) *Session {
	s := &Session{}
	_, _ = s.provider.Do("", func() (*gophercloud.ProviderClient, error) { return pc, nil })
	return s
}

// Provider returns the authenticated provider client. The first call
// authenticates; later calls return the result of the first call.
func (s *Session) Provider(ctx context.Context) (*gophercloud.ProviderClient, error) {
	return s.provider.Do("", func() (*gophercloud.ProviderClient, error) {
		logger := s.logger()
		opts := s.AuthOptions
		// Token refresh on 401 is handled by retry.
		opts.AllowReauth = false

		pc, err := openstack.NewClient(opts.IdentityEndpoint)
		if err != nil {
			return nil, resource.Classify(resource.AuthInvalid, errors.Wrap(err, "create provider client"))
		}
		pc.UseTokenLock()
		if s.TLS != nil {
			pc.HTTPClient = http.Client{
				Transport: &http.Transport{
					Proxy:           http.ProxyFromEnvironment,
					TLSClientConfig: s.TLS,
				},
			}
		}

		logger.Debug("Authenticate", zap.String("endpoint", opts.IdentityEndpoint))
		r := &retry.Retrier{Policy: policy(4), Logger: logger}
		err = r.Do(ctx, func(ctx context.Context) error {
			return openstack.Authenticate(ctx, pc, opts)
		})
		if err != nil {
			return nil, authError(err)
		}
		s.AuthOptions = opts
		logger.Info("Authenticated")
		return pc, nil
	})
}

// Reauthenticate requests a new token.
func (s *Session) Reauthenticate(ctx context.Context) error {
	pc, err := s.Provider(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger().Info("Reauthenticate")
	if err := openstack.Authenticate(ctx, pc, s.AuthOptions); err != nil {
		return authError(err)
	}
	return nil
}

func (s *Session) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// authError classifies an authentication failure. Every failure to obtain
// a token is an authentication failure, except transport errors that
// exhausted their retries.
func authError(err error) error {
	if class, _ := retry.Classify(err); class == resource.TransientRemote {
		return resource.Classify(resource.ServiceUnavailable, errors.Wrap(err, "authenticate"))
	}
	return resource.Classify(resource.AuthInvalid, errors.Wrap(err, "authenticate"))
}
