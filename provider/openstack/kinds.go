package openstack

import (
	"github.com/func/seeder/resource"
	"github.com/zclconf/go-cty/cty"
)

type driver interface {
	resource.Driver
	init(base)
}

func kind(c *Clients, k *resource.Kind, d driver) *resource.Kind {
	d.init(base{clients: c, kind: k})
	k.Driver = d
	return k
}

var (
	stringSet = cty.Set(cty.String)
	stringMap = cty.Map(cty.String)
)

func domainRef() *resource.Field {
	return &resource.Field{
		Name:      "domain",
		Type:      cty.String,
		Key:       true,
		Immutable: true,
		Ref:       &resource.Ref{Kind: "domain"},
		Default:   resource.DefaultScope,
	}
}

// Kinds returns the built-in kinds, with drivers using the given clients.
func Kinds(c *Clients) []*resource.Kind {
	return []*resource.Kind{
		kind(c, &resource.Kind{
			Name:    "region",
			Service: "identity",
			Fields: []*resource.Field{
				{Name: "id", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
			},
		}, &regionDriver{}),
		kind(c, &resource.Kind{
			Name:    "domain",
			Service: "identity",
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
				{Name: "enabled", Type: cty.Bool},
			},
		}, &domainDriver{}),
		kind(c, &resource.Kind{
			Name:     "project",
			Service:  "identity",
			Parallel: true,
			Fields: []*resource.Field{
				domainRef(),
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
				{Name: "enabled", Type: cty.Bool},
				{Name: "tags", Type: stringSet},
			},
		}, &projectDriver{}),
		kind(c, &resource.Kind{
			Name:     "user",
			Service:  "identity",
			Parallel: true,
			Fields: []*resource.Field{
				domainRef(),
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
				{Name: "enabled", Type: cty.Bool},
				{Name: "email", Type: cty.String, Rule: "email"},
				{Name: "password", Type: cty.String, CreateOnly: true, Sensitive: true},
				{Name: "default_project", Type: cty.String, Ref: &resource.Ref{Kind: "project", Scope: "domain"}},
			},
		}, &userDriver{}),
		kind(c, &resource.Kind{
			Name:     "group",
			Service:  "identity",
			Parallel: true,
			Fields: []*resource.Field{
				domainRef(),
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
			},
		}, &groupDriver{}),
		kind(c, &resource.Kind{
			Name:     "role",
			Service:  "identity",
			Parallel: true,
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
			},
		}, &roleDriver{}),
		kind(c, &resource.Kind{
			Name:     "role_assignment",
			Service:  "identity",
			Parallel: true,
			Fields: []*resource.Field{
				{Name: "role", Type: cty.String, Key: true, Required: true, Ref: &resource.Ref{Kind: "role"}},
				{Name: "user", Type: cty.String, Key: true, Ref: &resource.Ref{Kind: "user"}},
				{Name: "group", Type: cty.String, Key: true, Ref: &resource.Ref{Kind: "group"}},
				{Name: "project", Type: cty.String, Key: true, Ref: &resource.Ref{Kind: "project"}},
				{Name: "domain", Type: cty.String, Key: true, Ref: &resource.Ref{Kind: "domain"}},
			},
			Validate: validateAssignment,
		}, &assignmentDriver{}),
		kind(c, &resource.Kind{
			Name:    "flavor",
			Service: "compute",
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "id", Type: cty.String, Immutable: true},
				{Name: "ram", Type: cty.Number, Immutable: true, Required: true, Rule: "min=1"},
				{Name: "vcpus", Type: cty.Number, Immutable: true, Required: true, Rule: "min=1"},
				{Name: "disk", Type: cty.Number, Immutable: true, Rule: "min=0"},
				{Name: "swap", Type: cty.Number, Immutable: true, Rule: "min=0"},
				{Name: "ephemeral", Type: cty.Number, Immutable: true, Rule: "min=0"},
				{Name: "rxtx_factor", Type: cty.Number, Immutable: true},
				{Name: "is_public", Type: cty.Bool, Immutable: true},
				{Name: "description", Type: cty.String},
				{Name: "extra_specs", Type: stringMap},
			},
		}, &flavorDriver{}),
		kind(c, &resource.Kind{
			Name:     "network",
			Service:  "network",
			Parallel: true,
			Fields: []*resource.Field{
				{Name: "project", Type: cty.String, Key: true, Immutable: true, Required: true, Ref: &resource.Ref{Kind: "project"}},
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
				{Name: "admin_state_up", Type: cty.Bool},
				{Name: "shared", Type: cty.Bool},
				{Name: "tags", Type: stringSet},
			},
		}, &networkDriver{}),
		kind(c, &resource.Kind{
			Name:    "dns_zone",
			Service: "dns",
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "email", Type: cty.String, Required: true, Rule: "email"},
				{Name: "ttl", Type: cty.Number, Rule: "min=1"},
				{Name: "description", Type: cty.String},
				{Name: "type", Type: cty.String, Immutable: true, Rule: "oneof=PRIMARY SECONDARY"},
			},
		}, &zoneDriver{}),
		kind(c, &resource.Kind{
			Name:    "resource_provider",
			Service: "placement",
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "uuid", Type: cty.String, Immutable: true, Rule: "uuid"},
				{Name: "traits", Type: stringSet},
			},
		}, &providerDriver{}),
		kind(c, &resource.Kind{
			Name:    "share_type",
			Service: "sharev2",
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "driver_handles_share_servers", Type: cty.Bool, Required: true, Immutable: true},
				{Name: "is_public", Type: cty.Bool, Immutable: true},
				{Name: "extra_specs", Type: stringMap},
			},
		}, &shareTypeDriver{}),
		kind(c, &resource.Kind{
			Name:     "volume_type",
			Service:  "volumev3",
			Parallel: true,
			Fields: []*resource.Field{
				{Name: "name", Type: cty.String, Key: true, Required: true},
				{Name: "description", Type: cty.String},
				{Name: "is_public", Type: cty.Bool},
				{Name: "extra_specs", Type: stringMap},
			},
		}, &volumeTypeDriver{}),
	}
}
