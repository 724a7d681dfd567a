package openstack

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/func/seeder/ctyext"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/pkg/errors"
)

// SeedTag marks items created by the seeder on services that support tags.
// Only items carrying the tag are pruned.
const SeedTag = "seeded-by:openstack-seeder"

// do performs a request with retries. The response is decoded into out, if
// set. Any status in ok is a success.
func (c *client) do(ctx context.Context, method, url string, body, out interface{}, ok ...int) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		opts := &gophercloud.RequestOpts{OkCodes: ok}
		if body != nil {
			opts.JSONBody = body
		}
		if out != nil {
			opts.JSONResponse = out
		}
		_, err := c.Request(ctx, method, url, opts)
		return err
	})
}

func (c *client) get(ctx context.Context, url string, out interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, out, http.StatusOK)
}

// find gets a single item. A 404 response returns false without an error.
func (c *client) find(ctx context.Context, url string, out interface{}) (bool, error) {
	err := c.get(ctx, url, out)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (c *client) post(ctx context.Context, url string, body, out interface{}, ok ...int) error {
	if len(ok) == 0 {
		ok = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted}
	}
	return c.do(ctx, http.MethodPost, url, body, out, ok...)
}

func (c *client) put(ctx context.Context, url string, body, out interface{}, ok ...int) error {
	if len(ok) == 0 {
		ok = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent}
	}
	return c.do(ctx, http.MethodPut, url, body, out, ok...)
}

func (c *client) patch(ctx context.Context, url string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, url, body, out, http.StatusOK, http.StatusAccepted)
}

// delete deletes an item. An item that is already gone is not an error.
func (c *client) delete(ctx context.Context, url string) error {
	err := c.do(ctx, http.MethodDelete, url, nil, nil, http.StatusOK, http.StatusAccepted, http.StatusNoContent)
	if isNotFound(err) {
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	return retry.IsStatus(err, http.StatusNotFound)
}

// query builds a URL with query parameters. Empty values are omitted.
func query(base string, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// base is embedded by every driver.
type base struct {
	clients *Clients
	kind    *resource.Kind
}

func (b *base) init(o base) { *b = o }

func (b *base) client(ctx context.Context) (*client, error) {
	return b.clients.client(ctx, b.kind.Service)
}

// remote converts an API object with seed tags to a remote item.
func (b *base) remote(id string, obj interface{}) (*resource.Remote, error) {
	val, err := ctyext.Encode(obj, b.kind.Type())
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s %s", b.kind.Name, id)
	}
	return &resource.Remote{ID: id, Fields: val.AsValueMap()}, nil
}

// decode assigns the declared fields of an item to an API object.
func decode(item *resource.Item, target interface{}) error {
	if err := ctyext.Decode(item.Object(), target); err != nil {
		return resource.Classify(resource.InvalidValue, err)
	}
	return nil
}

// decodeDelta assigns the changed fields of a delta to an API object.
func decodeDelta(delta resource.Delta, target interface{}) error {
	if err := ctyext.Decode(delta.Object(), target); err != nil {
		return resource.Classify(resource.InvalidValue, err)
	}
	return nil
}

// only returns the single element of found, nil if found is empty, or an
// AmbiguousRemote error.
func only[T any](kind string, key resource.Key, found []T) (*T, error) {
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	}
	return nil, resource.Errorf(resource.AmbiguousRemote, "%d remote %s items match %s", len(found), kind, key)
}

// withSeedTag returns the tags with the seed tag added.
func withSeedTag(tags []string) []string {
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if t != SeedTag {
			out = append(out, t)
		}
	}
	out = append(out, SeedTag)
	sort.Strings(out)
	return out
}

// splitSeedTag removes the seed tag from tags and reports whether it was
// present.
func splitSeedTag(tags []string) ([]string, bool) {
	out := make([]string, 0, len(tags))
	seeded := false
	for _, t := range tags {
		if t == SeedTag {
			seeded = true
			continue
		}
		out = append(out, t)
	}
	return out, seeded
}

// declaredSpecs limits remote extra specs to the keys declared by the item.
// Keys that are not declared are left alone.
func declaredSpecs(item *resource.Item, field string, remote map[string]string) map[string]string {
	if !item.Has(field) {
		return nil
	}
	declared := item.Get(field)
	out := make(map[string]string)
	if declared.IsNull() || !declared.CanIterateElements() {
		return out
	}
	for it := declared.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		if v, ok := remote[k.AsString()]; ok {
			out[k.AsString()] = v
		}
	}
	return out
}
