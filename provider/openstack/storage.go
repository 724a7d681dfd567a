package openstack

import (
	"context"
	"net/http"
	"strconv"

	"github.com/func/seeder/resource"
)

// dhss is the extra spec holding driver_handles_share_servers.
const dhss = "driver_handles_share_servers"

type shareType struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty" seed:"name"`
	DHSS       *bool             `json:"-" seed:"driver_handles_share_servers"`
	IsPublic   *bool             `json:"share_type_access:is_public,omitempty" seed:"is_public"`
	ExtraSpecs map[string]string `json:"extra_specs,omitempty" seed:"extra_specs"`
}

type shareTypeDriver struct{ base }

func (d *shareTypeDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Types []shareType `json:"share_types"`
	}
	if err := c.get(ctx, query(c.ServiceURL("types"), "is_public", "all"), &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Types, func(v shareType) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.shareType(item, *found)
}

func (d *shareTypeDriver) shareType(item *resource.Item, t shareType) (*resource.Remote, error) {
	if v, ok := t.ExtraSpecs[dhss]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			t.DHSS = &b
		}
	}
	specs := make(map[string]string, len(t.ExtraSpecs))
	for k, v := range t.ExtraSpecs {
		if k != dhss {
			specs[k] = v
		}
	}
	t.ExtraSpecs = declaredSpecs(item, "extra_specs", specs)
	return d.remote(t.ID, t)
}

func (d *shareTypeDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in shareType
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	specs := map[string]string{}
	for k, v := range in.ExtraSpecs {
		specs[k] = v
	}
	if in.DHSS != nil {
		specs[dhss] = strconv.FormatBool(*in.DHSS)
	}
	in.ExtraSpecs = specs
	var out struct {
		Type shareType `json:"share_type"`
	}
	if err := c.post(ctx, c.ServiceURL("types"), map[string]interface{}{"share_type": in}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return d.shareType(item, out.Type)
}

// Update sets changed extra specs. The other fields of a share type are
// immutable.
func (d *shareTypeDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in shareType
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	if len(in.ExtraSpecs) > 0 {
		body := map[string]interface{}{"extra_specs": in.ExtraSpecs}
		if err := c.post(ctx, c.ServiceURL("types", existing.ID, "extra_specs"), body, nil, http.StatusOK); err != nil {
			return nil, err
		}
	}
	var out struct {
		Type shareType `json:"share_type"`
	}
	if err := c.get(ctx, c.ServiceURL("types", existing.ID), &out); err != nil {
		return nil, err
	}
	return d.shareType(item, out.Type)
}

type volumeType struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty" seed:"name"`
	Description *string           `json:"description,omitempty" seed:"description"`
	IsPublic    *bool             `json:"os-volume-type-access:is_public,omitempty" seed:"is_public"`
	ExtraSpecs  map[string]string `json:"extra_specs,omitempty" seed:"extra_specs"`
}

type volumeTypeDriver struct{ base }

func (d *volumeTypeDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Types []volumeType `json:"volume_types"`
	}
	if err := c.get(ctx, query(c.ServiceURL("types"), "is_public", "None"), &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Types, func(v volumeType) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.volumeType(item, *found)
}

func (d *volumeTypeDriver) volumeType(item *resource.Item, t volumeType) (*resource.Remote, error) {
	t.ExtraSpecs = declaredSpecs(item, "extra_specs", t.ExtraSpecs)
	return d.remote(t.ID, t)
}

func (d *volumeTypeDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in volumeType
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	var out struct {
		Type volumeType `json:"volume_type"`
	}
	if err := c.post(ctx, c.ServiceURL("types"), map[string]interface{}{"volume_type": in}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return d.volumeType(item, out.Type)
}

func (d *volumeTypeDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in volumeType
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	// Updates take is_public without the extension prefix.
	update := map[string]interface{}{}
	if in.Description != nil {
		update["description"] = *in.Description
	}
	if in.IsPublic != nil {
		update["is_public"] = *in.IsPublic
	}
	if len(update) > 0 {
		body := map[string]interface{}{"volume_type": update}
		if err := c.put(ctx, c.ServiceURL("types", existing.ID), body, nil, http.StatusOK); err != nil {
			return nil, err
		}
	}
	if len(in.ExtraSpecs) > 0 {
		body := map[string]interface{}{"extra_specs": in.ExtraSpecs}
		if err := c.post(ctx, c.ServiceURL("types", existing.ID, "extra_specs"), body, nil, http.StatusOK); err != nil {
			return nil, err
		}
	}
	var out struct {
		Type volumeType `json:"volume_type"`
	}
	if err := c.get(ctx, c.ServiceURL("types", existing.ID), &out); err != nil {
		return nil, err
	}
	return d.volumeType(item, out.Type)
}
