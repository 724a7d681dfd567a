package openstack

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/func/seeder/resource"
)

// descriptionVersion is the compute microversion adding flavor descriptions.
const descriptionVersion = "2.55"

type flavor struct {
	ID          string            `json:"id,omitempty" seed:"id"`
	Name        string            `json:"name,omitempty" seed:"name"`
	RAM         int               `json:"ram" seed:"ram"`
	VCPUs       int               `json:"vcpus" seed:"vcpus"`
	Disk        *int              `json:"disk,omitempty" seed:"disk"`
	Swap        *swap             `json:"swap,omitempty" seed:"swap"`
	Ephemeral   *int              `json:"OS-FLV-EXT-DATA:ephemeral,omitempty" seed:"ephemeral"`
	RxTxFactor  *float64          `json:"rxtx_factor,omitempty" seed:"rxtx_factor"`
	IsPublic    *bool             `json:"os-flavor-access:is_public,omitempty" seed:"is_public"`
	Description *string           `json:"description,omitempty" seed:"description"`
	ExtraSpecs  map[string]string `json:"-" seed:"extra_specs"`
}

// swap is the swap size of a flavor in MiB. Older microversions report no
// swap as an empty string.
type swap int

func (s *swap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`""`)) || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*s = swap(n)
	return nil
}

type flavorDriver struct{ base }

func (d *flavorDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Flavors []flavor `json:"flavors"`
	}
	if err := c.get(ctx, query(c.ServiceURL("flavors", "detail"), "is_public", "None"), &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Flavors, func(v flavor) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.flavor(ctx, c, item, *found)
}

func (d *flavorDriver) flavor(ctx context.Context, c *client, item *resource.Item, f flavor) (*resource.Remote, error) {
	if item.Has("extra_specs") {
		var out struct {
			ExtraSpecs map[string]string `json:"extra_specs"`
		}
		if err := c.get(ctx, c.ServiceURL("flavors", f.ID, "os-extra_specs"), &out); err != nil {
			return nil, err
		}
		f.ExtraSpecs = declaredSpecs(item, "extra_specs", out.ExtraSpecs)
	}
	return d.remote(f.ID, f)
}

func (d *flavorDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in flavor
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	if in.Description != nil && !c.atLeast(descriptionVersion) {
		return nil, d.noDescription(c)
	}
	if in.Disk == nil {
		zero := 0
		in.Disk = &zero
	}
	var out struct {
		Flavor flavor `json:"flavor"`
	}
	if err := c.post(ctx, c.ServiceURL("flavors"), map[string]interface{}{"flavor": in}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	if len(in.ExtraSpecs) > 0 {
		if err := d.setSpecs(ctx, c, out.Flavor.ID, in.ExtraSpecs); err != nil {
			return nil, err
		}
	}
	return d.flavor(ctx, c, item, out.Flavor)
}

func (d *flavorDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in flavor
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out struct {
		Flavor flavor `json:"flavor"`
	}
	if delta.Has("description") {
		if !c.atLeast(descriptionVersion) {
			return nil, d.noDescription(c)
		}
		body := map[string]interface{}{"flavor": map[string]interface{}{"description": in.Description}}
		if err := c.put(ctx, c.ServiceURL("flavors", existing.ID), body, &out, http.StatusOK); err != nil {
			return nil, err
		}
	}
	if delta.Has("extra_specs") && len(in.ExtraSpecs) > 0 {
		if err := d.setSpecs(ctx, c, existing.ID, in.ExtraSpecs); err != nil {
			return nil, err
		}
	}
	if out.Flavor.ID == "" {
		if _, err := c.find(ctx, c.ServiceURL("flavors", existing.ID), &out); err != nil {
			return nil, err
		}
	}
	return d.flavor(ctx, c, item, out.Flavor)
}

func (d *flavorDriver) setSpecs(ctx context.Context, c *client, id string, specs map[string]string) error {
	body := map[string]interface{}{"extra_specs": specs}
	return c.post(ctx, c.ServiceURL("flavors", id, "os-extra_specs"), body, nil, http.StatusOK)
}

func (d *flavorDriver) noDescription(c *client) error {
	return resource.Errorf(resource.VersionIncompatible, "flavor descriptions need compute microversion %s, have %s", descriptionVersion, c.version)
}
