package openstack

import (
	"context"
	"net/http"
	"strings"

	"github.com/func/seeder/resource"
)

type zone struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Email       *string `json:"email,omitempty" seed:"email"`
	TTL         *int    `json:"ttl,omitempty" seed:"ttl"`
	Description *string `json:"description,omitempty" seed:"description"`
	Type        *string `json:"type,omitempty" seed:"type"`

	// Seed is the name as declared. Designate always reports names fully
	// qualified.
	Seed string `json:"-" seed:"name"`
}

// fqdn returns a zone name with the trailing dot.
func fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

type zoneDriver struct{ base }

func (d *zoneDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := fqdn(item.String("name"))
	var out struct {
		Zones []zone `json:"zones"`
	}
	if err := c.get(ctx, query(c.ServiceURL("zones"), "name", name), &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Zones, func(v zone) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.zone(item, *found)
}

func (d *zoneDriver) zone(item *resource.Item, z zone) (*resource.Remote, error) {
	z.Seed = item.String("name")
	return d.remote(z.ID, z)
}

func (d *zoneDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in zone
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	in.Name = fqdn(in.Seed)
	var out zone
	if err := c.post(ctx, c.ServiceURL("zones"), in, &out, http.StatusCreated, http.StatusAccepted); err != nil {
		return nil, err
	}
	return d.zone(item, out)
}

func (d *zoneDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in zone
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out zone
	if err := c.patch(ctx, c.ServiceURL("zones", existing.ID), in, &out); err != nil {
		return nil, err
	}
	return d.zone(item, out)
}
