package config

import (
	"os"
	"strings"
	"time"

	"github.com/func/seeder/resource"
	"github.com/func/seeder/suggest"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/go-playground/validator.v9"
)

// Options configure a run.
type Options struct {
	// Files are the seed files or directories to load.
	Files []string `validate:"min=1,dive,required"`

	// Interface is the endpoint interface to use from the service catalog.
	Interface string `validate:"oneof=public internal admin"`

	// Region selects endpoints from the service catalog. If empty, the
	// first endpoint of each service is used.
	Region string

	// Prune lists the kinds for which seeded items that are no longer
	// declared are deleted.
	Prune []string `validate:"dive,required"`

	// Concurrency is the maximum number of items of a kind reconciled at
	// the same time.
	Concurrency uint `validate:"min=1,max=32"`

	// Deadline limits the entire run. Zero means no limit.
	Deadline time.Duration `validate:"gte=0"`

	// CallTimeout limits every remote call attempt.
	CallTimeout time.Duration `validate:"gt=0"`

	// Verbosity of the text report.
	Verbosity string `validate:"oneof=quiet normal verbose"`

	// Format of the report.
	Format string `validate:"oneof=text json"`

	// Metrics, if set, is the path metrics are written to in the node
	// exporter textfile format.
	Metrics string

	// LogLevel is the minimum level of log messages.
	LogLevel string `validate:"oneof=debug info warn error"`
}

// DefaultOptions returns the options used when no flags are given. The
// interface is left empty for ApplyEnv to fill in.
func DefaultOptions() Options {
	return Options{
		Concurrency: 4,
		CallTimeout: 60 * time.Second,
		Verbosity:   "normal",
		Format:      "text",
		LogLevel:    "info",
	}
}

// ApplyEnv sets the interface and region from the standard OpenStack
// environment variables OS_INTERFACE and OS_REGION_NAME, unless they are
// already set. The interface defaults to public.
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if o.Interface == "" {
		if v, ok := lookup("OS_INTERFACE"); ok && v != "" {
			o.Interface = strings.TrimSuffix(v, "URL")
		} else {
			o.Interface = "public"
		}
	}
	if v, ok := lookup("OS_REGION_NAME"); ok && o.Region == "" {
		o.Region = v
	}
}

var validate = validator.New()

// Validate checks the options. Prune kinds are checked against the kinds of
// the registry, if given.
func (o Options) Validate(reg *resource.Registry) error {
	var errs error
	if err := validate.Struct(o); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, "validate options")
		}
		for _, fe := range verrs {
			errs = multierr.Append(errs, resource.Errorf(
				resource.InvalidValue,
				"option %s: value %v does not satisfy %q",
				optionName(fe.StructField()), fe.Value(), tag(fe),
			))
		}
	}
	if reg != nil {
		names := reg.Names()
		for _, k := range o.Prune {
			if reg.Kind(k) == nil {
				errs = multierr.Append(errs, resource.Errorf(
					resource.UnknownKind,
					"option prune: unknown kind %q%s", k, suggest.Hint(k, names),
				))
			}
		}
	}
	return errs
}

// PruneKinds returns the prune kinds as a set.
func (o Options) PruneKinds() map[string]bool {
	if len(o.Prune) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.Prune))
	for _, k := range o.Prune {
		set[k] = true
	}
	return set
}

func tag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// optionName converts a struct field name to its flag name.
func optionName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
