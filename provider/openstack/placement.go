package openstack

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/func/seeder/resource"
)

type resourceProvider struct {
	UUID       string   `json:"uuid,omitempty" seed:"uuid"`
	Name       string   `json:"name,omitempty" seed:"name"`
	Generation int      `json:"generation,omitempty"`
	Traits     []string `json:"-" seed:"traits"`
}

type providerTraits struct {
	Traits     []string `json:"traits"`
	Generation int      `json:"resource_provider_generation"`
}

// customTrait is the prefix of traits defined by operators. Standard traits
// always exist.
const customTrait = "CUSTOM_"

type providerDriver struct{ base }

func (d *providerDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	found, err := d.find(ctx, c, item)
	if err != nil || found == nil {
		return nil, err
	}
	return d.provider(ctx, c, item, *found)
}

func (d *providerDriver) find(ctx context.Context, c *client, item *resource.Item) (*resourceProvider, error) {
	name := item.String("name")
	var out struct {
		Providers []resourceProvider `json:"resource_providers"`
	}
	if err := c.get(ctx, query(c.ServiceURL("resource_providers"), "name", name), &out); err != nil {
		return nil, err
	}
	return only(d.kind.Name, item.Key(), filter(out.Providers, func(v resourceProvider) bool {
		return v.Name == name
	}))
}

func (d *providerDriver) provider(ctx context.Context, c *client, item *resource.Item, p resourceProvider) (*resource.Remote, error) {
	if item.Has("traits") {
		traits, err := d.traits(ctx, c, p.UUID)
		if err != nil {
			return nil, err
		}
		p.Traits = traits.Traits
	}
	return d.remote(p.UUID, p)
}

func (d *providerDriver) traits(ctx context.Context, c *client, uuid string) (*providerTraits, error) {
	var out providerTraits
	if err := c.get(ctx, c.ServiceURL("resource_providers", uuid, "traits"), &out); err != nil {
		return nil, err
	}
	if out.Traits == nil {
		out.Traits = []string{}
	}
	sort.Strings(out.Traits)
	return &out, nil
}

func (d *providerDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in resourceProvider
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	body := map[string]interface{}{"name": in.Name}
	if in.UUID != "" {
		body["uuid"] = in.UUID
	}
	// Placement returns the provider from 1.20 only.
	if err := c.post(ctx, c.ServiceURL("resource_providers"), body, nil, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	found, err := d.find(ctx, c, item)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, resource.Errorf(resource.PermanentRemote, "created resource provider %s was not found", in.Name)
	}
	if item.Has("traits") {
		if err := d.setTraits(ctx, c, found.UUID, in.Traits); err != nil {
			return nil, err
		}
	}
	return d.provider(ctx, c, item, *found)
}

func (d *providerDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in resourceProvider
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	if delta.Has("traits") {
		if err := d.setTraits(ctx, c, existing.ID, in.Traits); err != nil {
			return nil, err
		}
	}
	var out resourceProvider
	if err := c.get(ctx, c.ServiceURL("resource_providers", existing.ID), &out); err != nil {
		return nil, err
	}
	return d.provider(ctx, c, item, out)
}

// setTraits replaces the traits of a provider. Custom traits are created
// first.
func (d *providerDriver) setTraits(ctx context.Context, c *client, uuid string, traits []string) error {
	for _, t := range traits {
		if !strings.HasPrefix(t, customTrait) {
			continue
		}
		if err := c.put(ctx, c.ServiceURL("traits", t), nil, nil, http.StatusCreated, http.StatusNoContent); err != nil {
			return err
		}
	}
	current, err := d.traits(ctx, c, uuid)
	if err != nil {
		return err
	}
	if traits == nil {
		traits = []string{}
	}
	body := providerTraits{Traits: traits, Generation: current.Generation}
	return c.put(ctx, c.ServiceURL("resource_providers", uuid, "traits"), body, nil, http.StatusOK)
}
