package openstack

import (
	"context"
	"net/http"

	"github.com/func/seeder/resource"
)

type region struct {
	ID          string  `json:"id,omitempty" seed:"id"`
	Description *string `json:"description,omitempty" seed:"description"`
}

type regionDriver struct{ base }

func (d *regionDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Region region `json:"region"`
	}
	ok, err := c.find(ctx, c.ServiceURL("regions", item.String("id")), &out)
	if err != nil || !ok {
		return nil, err
	}
	return d.remote(out.Region.ID, out.Region)
}

func (d *regionDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in region
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	var out struct {
		Region region `json:"region"`
	}
	body := map[string]interface{}{"region": in}
	if err := c.post(ctx, c.ServiceURL("regions"), body, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.remote(out.Region.ID, out.Region)
}

func (d *regionDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in region
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out struct {
		Region region `json:"region"`
	}
	body := map[string]interface{}{"region": in}
	if err := c.patch(ctx, c.ServiceURL("regions", existing.ID), body, &out); err != nil {
		return nil, err
	}
	return d.remote(out.Region.ID, out.Region)
}

type domain struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name,omitempty" seed:"name"`
	Description *string `json:"description,omitempty" seed:"description"`
	Enabled     *bool   `json:"enabled,omitempty" seed:"enabled"`
}

type domainDriver struct{ base }

func (d *domainDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Domains []domain `json:"domains"`
	}
	if err := c.get(ctx, query(c.ServiceURL("domains"), "name", item.String("name")), &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Domains, func(v domain) bool {
		return v.Name == item.String("name")
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.remote(found.ID, found)
}

func (d *domainDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in domain
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	var out struct {
		Domain domain `json:"domain"`
	}
	if err := c.post(ctx, c.ServiceURL("domains"), map[string]interface{}{"domain": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.remote(out.Domain.ID, out.Domain)
}

func (d *domainDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in domain
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out struct {
		Domain domain `json:"domain"`
	}
	if err := c.patch(ctx, c.ServiceURL("domains", existing.ID), map[string]interface{}{"domain": in}, &out); err != nil {
		return nil, err
	}
	return d.remote(out.Domain.ID, out.Domain)
}

type project struct {
	ID          string   `json:"id,omitempty"`
	DomainID    string   `json:"domain_id,omitempty" seed:"domain"`
	Name        string   `json:"name,omitempty" seed:"name"`
	Description *string  `json:"description,omitempty" seed:"description"`
	Enabled     *bool    `json:"enabled,omitempty" seed:"enabled"`
	Tags        []string `json:"tags,omitempty" seed:"tags"`
}

type projectDriver struct{ base }

func (d *projectDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Projects []project `json:"projects"`
	}
	url := query(c.ServiceURL("projects"), "name", name, "domain_id", item.RefID("domain"))
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Projects, func(v project) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.project(*found)
}

func (d *projectDriver) project(p project) (*resource.Remote, error) {
	var seeded bool
	p.Tags, seeded = splitSeedTag(p.Tags)
	r, err := d.remote(p.ID, p)
	if err != nil {
		return nil, err
	}
	r.Seeded = seeded
	r.Key = resource.Key{p.DomainID, p.Name}
	return r, nil
}

func (d *projectDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in project
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	in.Tags = withSeedTag(in.Tags)
	var out struct {
		Project project `json:"project"`
	}
	if err := c.post(ctx, c.ServiceURL("projects"), map[string]interface{}{"project": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.project(out.Project)
}

func (d *projectDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in project
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	if delta.Has("tags") {
		in.Tags = withSeedTag(in.Tags)
	}
	var out struct {
		Project project `json:"project"`
	}
	if err := c.patch(ctx, c.ServiceURL("projects", existing.ID), map[string]interface{}{"project": in}, &out); err != nil {
		return nil, err
	}
	return d.project(out.Project)
}

func (d *projectDriver) ListSeeded(ctx context.Context) ([]*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Projects []project `json:"projects"`
	}
	if err := c.get(ctx, query(c.ServiceURL("projects"), "tags", SeedTag), &out); err != nil {
		return nil, err
	}
	var list []*resource.Remote
	for _, p := range out.Projects {
		r, err := d.project(p)
		if err != nil {
			return nil, err
		}
		if r.Seeded {
			list = append(list, r)
		}
	}
	return list, nil
}

func (d *projectDriver) Delete(ctx context.Context, existing *resource.Remote) error {
	c, err := d.client(ctx)
	if err != nil {
		return err
	}
	return c.delete(ctx, c.ServiceURL("projects", existing.ID))
}

type user struct {
	ID               string  `json:"id,omitempty"`
	DomainID         string  `json:"domain_id,omitempty" seed:"domain"`
	Name             string  `json:"name,omitempty" seed:"name"`
	Description      *string `json:"description,omitempty" seed:"description"`
	Enabled          *bool   `json:"enabled,omitempty" seed:"enabled"`
	Email            *string `json:"email,omitempty" seed:"email"`
	Password         *string `json:"password,omitempty" seed:"password"`
	DefaultProjectID *string `json:"default_project_id,omitempty" seed:"default_project"`
}

type userDriver struct{ base }

func (d *userDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Users []user `json:"users"`
	}
	url := query(c.ServiceURL("users"), "name", name, "domain_id", item.RefID("domain"))
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Users, func(v user) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.user(*found)
}

func (d *userDriver) user(u user) (*resource.Remote, error) {
	u.Password = nil
	return d.remote(u.ID, u)
}

func (d *userDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in user
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	var out struct {
		User user `json:"user"`
	}
	if err := c.post(ctx, c.ServiceURL("users"), map[string]interface{}{"user": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.user(out.User)
}

func (d *userDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in user
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out struct {
		User user `json:"user"`
	}
	if err := c.patch(ctx, c.ServiceURL("users", existing.ID), map[string]interface{}{"user": in}, &out); err != nil {
		return nil, err
	}
	return d.user(out.User)
}

type group struct {
	ID          string  `json:"id,omitempty"`
	DomainID    string  `json:"domain_id,omitempty" seed:"domain"`
	Name        string  `json:"name,omitempty" seed:"name"`
	Description *string `json:"description,omitempty" seed:"description"`
}

type groupDriver struct{ base }

func (d *groupDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Groups []group `json:"groups"`
	}
	url := query(c.ServiceURL("groups"), "name", name, "domain_id", item.RefID("domain"))
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	found, err := only(d.kind.Name, item.Key(), filter(out.Groups, func(v group) bool {
		return v.Name == name
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.remote(found.ID, found)
}

func (d *groupDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in group
	if err := decode(item, &in); err != nil {
		return nil, err
	}
	var out struct {
		Group group `json:"group"`
	}
	if err := c.post(ctx, c.ServiceURL("groups"), map[string]interface{}{"group": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.remote(out.Group.ID, out.Group)
}

func (d *groupDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	var in group
	if err := decodeDelta(delta, &in); err != nil {
		return nil, err
	}
	var out struct {
		Group group `json:"group"`
	}
	if err := c.patch(ctx, c.ServiceURL("groups", existing.ID), map[string]interface{}{"group": in}, &out); err != nil {
		return nil, err
	}
	return d.remote(out.Group.ID, out.Group)
}

type role struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty" seed:"name"`
	DomainID *string `json:"domain_id,omitempty"`
}

type roleDriver struct{ base }

func (d *roleDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	name := item.String("name")
	var out struct {
		Roles []role `json:"roles"`
	}
	if err := c.get(ctx, query(c.ServiceURL("roles"), "name", name), &out); err != nil {
		return nil, err
	}
	// Domain specific roles are not managed.
	found, err := only(d.kind.Name, item.Key(), filter(out.Roles, func(v role) bool {
		return v.Name == name && (v.DomainID == nil || *v.DomainID == "")
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return d.remote(found.ID, found)
}

func (d *roleDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	in := role{Name: item.String("name")}
	var out struct {
		Role role `json:"role"`
	}
	if err := c.post(ctx, c.ServiceURL("roles"), map[string]interface{}{"role": in}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return d.remote(out.Role.ID, out.Role)
}

// Update is never called with changes: a role has no fields besides its
// name.
func (d *roleDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	return existing, nil
}

// A role assignment has no server side identifier. The path of the
// assignment is used instead.
type assignmentDriver struct{ base }

var (
	assignmentActors  = []string{"user", "group"}
	assignmentTargets = []string{"project", "domain"}
)

// validateAssignment checks that an assignment has exactly one actor and one
// target.
func validateAssignment(item *resource.Item) error {
	count := func(fields []string) int {
		n := 0
		for _, f := range fields {
			if item.Has(f) {
				n++
			}
		}
		return n
	}
	if count(assignmentActors) != 1 {
		return resource.Errorf(resource.InvalidValue, "exactly one of user or group must be set")
	}
	if count(assignmentTargets) != 1 {
		return resource.Errorf(resource.InvalidValue, "exactly one of project or domain must be set")
	}
	return nil
}

func (d *assignmentDriver) path(item *resource.Item) []string {
	var parts []string
	for _, f := range assignmentTargets {
		if item.Has(f) {
			parts = append(parts, f+"s", item.RefID(f))
		}
	}
	for _, f := range assignmentActors {
		if item.Has(f) {
			parts = append(parts, f+"s", item.RefID(f))
		}
	}
	return append(parts, "roles", item.RefID("role"))
}

func (d *assignmentDriver) assignment(c *client, item *resource.Item) (*resource.Remote, error) {
	var obj struct {
		Role    string  `seed:"role"`
		User    *string `seed:"user"`
		Group   *string `seed:"group"`
		Project *string `seed:"project"`
		Domain  *string `seed:"domain"`
	}
	if err := decode(item, &obj); err != nil {
		return nil, err
	}
	return d.remote(c.ServiceURL(d.path(item)...), obj)
}

func (d *assignmentDriver) Find(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	err = c.do(ctx, http.MethodHead, c.ServiceURL(d.path(item)...), nil, nil, http.StatusOK, http.StatusNoContent)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.assignment(c, item)
}

func (d *assignmentDriver) Create(ctx context.Context, item *resource.Item) (*resource.Remote, error) {
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.put(ctx, c.ServiceURL(d.path(item)...), nil, nil, http.StatusNoContent); err != nil {
		return nil, err
	}
	return d.assignment(c, item)
}

// Update is never called with changes: every field of an assignment is part
// of its key.
func (d *assignmentDriver) Update(ctx context.Context, existing *resource.Remote, delta resource.Delta, item *resource.Item) (*resource.Remote, error) {
	return existing, nil
}

// filter returns the elements of list matching fn.
func filter[T any](list []T, fn func(T) bool) []T {
	var out []T
	for _, v := range list {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}
