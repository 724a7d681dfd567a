package openstack

import (
	"context"
	"net/http"

	"github.com/func/seeder/resource"
)

type network struct {
	ID           string   `json:"id,omitempty"`
	ProjectID    string   `json:"project_id,omitempty" seed:"project"`
	Name         string   `json:"name,omitempty" seed:"name"`
	Description  *string  `json:"description,omitempty" seed:"description"`
	AdminStateUp *bool    `json:"admin_state_up,omitempty" seed:"admin_state_up"`
	Shared       *bool    `json:"shared,omitempty" seed:"shared"`
	Tags         []string `json:"tags,omitempty" seed:"tags"`
}

type networkDriver struct{ base }

func (d *networkDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Networks []network `json:"networks"`
	}
	url := query(c.ServiceURL("networks"), "name", name, "project_id", item.RefID("project"))
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Networks, func(v network) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.network(*found)
}

func (d *networkDriver) network(n network) (*resource.Remote, error) {
	var seeded bool
	n.Tags, seeded = splitSeedTag(n.Tags)
	r, err := d.remote(n.ID, n)
	if err != nil {
		return nil, err
	}
	r.Seeded = seeded
	r.Key = resource.Key{n.ProjectID, n.Name}
	return r, nil
}

func (d *networkDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in network
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	tags := withSeedTag(in.Tags)
	// Tags are not accepted on create.
	in.Tags = nil
	var out struct {
		Network network `json:"network"`
	}
	if err := c.post(ctx, c.ServiceURL("networks"), map[string]interface{}{"network": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	if err := d.setTags(ctx, c, out.Network.ID, tags); err != nil {
		return nil, err
	}
	out.Network.Tags = tags
	return d.network(out.Network)
}

func (d *networkDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in network
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	tags := in.Tags
	in.Tags = nil

	var out struct {
		Network network `json:"network"`
	}
	if len(delta) > 1 || !delta.Has("tags") {
		if err := c.put(ctx, c.ServiceURL("networks", existing.ID), map[string]interface{}{"network": in}, &out, http.StatusOK); err != nil {
			return nil, err
		}
	} else if _, err := c.find(ctx, c.ServiceURL("networks", existing.ID), &out); err != nil {
		return nil, err
	}
	if delta.Has("tags") {
		tags = withSeedTag(tags)
		if err := d.setTags(ctx, c, existing.ID, tags); err != nil {
			return nil, err
		}
		out.Network.Tags = tags
	}
	return d.network(out.Network)
}

func (d *networkDriver) setTags(ctx context.Context, c *client, id string, tags []string) error {
	body := map[string]interface{}{"tags": tags}
	return c.put(ctx, c.ServiceURL("networks", id, "tags"), body, nil, http.StatusOK)
}

func (d *networkDriver) ListSeeded(ctx context.Context) ([]*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Networks []network `json:"networks"`
	}
	if err := c.get(ctx, query(c.ServiceURL("networks"), "tags", SeedTag), &out); err != nil {
		return nil, err
	}
	var list []*resource.Remote
	for _, n := range out.Networks {
		r, err := d.network(n)
		if err != nil {
			return nil, err
		}
		if r.Seeded {
			list = append(list, r)
		}
	}
	return list, nil
}

func (d *networkDriver) Delete(ctx context.Context, existing *resource.Remote) error {
	c, err := d.client(ctx)
	if err != nil {
		return err
	}
	return c.delete(ctx, c.ServiceURL("networks", existing.ID))
}
