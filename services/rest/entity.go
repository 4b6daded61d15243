package restsvc

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core/entity"
)

// EntityGateway implements entity.Gateway for one Schema:
//
//	GET    /{path}
//	POST   /{path}
//	PUT    /{path}/{id}
//	DELETE /{path}/{id}
//	DELETE /{path}/bulk-delete   {"ids": [...]}
type EntityGateway[R entity.Record] struct {
	c      *Client
	schema entity.Schema[R]
}

var _ entity.Gateway[entity.User] = (*EntityGateway[entity.User])(nil)

func NewEntityGateway[R entity.Record](c *Client, schema entity.Schema[R]) *EntityGateway[R] {
	return &EntityGateway[R]{c: c, schema: schema}
}

func (gw *EntityGateway[R]) List(ctx context.Context) ([]R, error) {
	var out []R
	if err := gw.c.get(ctx, gw.schema.Path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (gw *EntityGateway[R]) Create(ctx context.Context, rec R) (R, error) {
	var out R
	if err := gw.c.post(ctx, gw.schema.Path, rec, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (gw *EntityGateway[R]) Update(ctx context.Context, rec R) (R, error) {
	var out R
	path := fmt.Sprintf("%s/%d", gw.schema.Path, rec.EntityID())
	if err := gw.c.put(ctx, path, rec, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (gw *EntityGateway[R]) Delete(ctx context.Context, id int) error {
	return gw.c.delete(ctx, fmt.Sprintf("%s/%d", gw.schema.Path, id), nil)
}

func (gw *EntityGateway[R]) DeleteMany(ctx context.Context, ids []int) error {
	body := map[string][]int{"ids": ids}
	return gw.c.delete(ctx, gw.schema.BulkPath(), body)
}
