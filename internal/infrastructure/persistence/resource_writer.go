package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormResourceWriter stores rows of registered resources through GORM.
//
// Every row is written in its own transaction together with its child rows,
// so a failing price rolls back the product it belongs to while the other
// rows of the batch are unaffected. Failures caused by the row content are
// returned as *write.RowWriteError; everything else is returned as is and
// aborts the batch.
type GormResourceWriter struct {
	db       *gorm.DB
	registry *write.ResourceRegistry
	codec    *fieldCodec
	now      func() time.Time
}

// ResourceWriterOption configures a GormResourceWriter
type ResourceWriterOption func(*GormResourceWriter)

// WithClock sets the clock used for created_at and updated_at
func WithClock(now func() time.Time) ResourceWriterOption {
	return func(w *GormResourceWriter) {
		w.now = now
	}
}

// NewGormResourceWriter creates a storage executor for the registry's resources
func NewGormResourceWriter(db *gorm.DB, registry *write.ResourceRegistry, opts ...ResourceWriterOption) *GormResourceWriter {
	w := &GormResourceWriter{
		db:       db,
		registry: registry,
		codec:    newFieldCodec(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Insert implements write.ResourceWriter
func (w *GormResourceWriter) Insert(ctx context.Context, resource string, row write.Row, wctx *write.WriteContext, ext *write.FieldExtenderCollection) (write.Record, error) {
	return w.write(ctx, write.ModeCreate, resource, row, wctx, ext)
}

// Update implements write.ResourceWriter
func (w *GormResourceWriter) Update(ctx context.Context, resource string, row write.Row, wctx *write.WriteContext, ext *write.FieldExtenderCollection) (write.Record, error) {
	return w.write(ctx, write.ModeUpdate, resource, row, wctx, ext)
}

// Upsert implements write.ResourceWriter
func (w *GormResourceWriter) Upsert(ctx context.Context, resource string, row write.Row, wctx *write.WriteContext, ext *write.FieldExtenderCollection) (write.Record, error) {
	return w.write(ctx, write.ModeUpsert, resource, row, wctx, ext)
}

func (w *GormResourceWriter) write(ctx context.Context, mode write.Mode, resource string, row write.Row, wctx *write.WriteContext, ext *write.FieldExtenderCollection) (write.Record, error) {
	def, ok := w.registry.Lookup(resource)
	if !ok {
		return write.Record{}, fmt.Errorf("resource %q is not registered", resource)
	}
	if row == nil {
		row = write.Row{}
	}

	var rec write.Record
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = w.writeRow(tx, mode, def, row, wctx, ext, nil)
		return err
	})
	if err != nil {
		return write.Record{}, classify(resource, err)
	}
	return rec, nil
}

type childRows struct {
	collection write.ChildCollection
	rows       []write.Row
}

// parentLink ties a child row to the row it is written under
type parentLink struct {
	resource   string
	foreignKey string
	key        any
}

func (w *GormResourceWriter) writeRow(tx *gorm.DB, mode write.Mode, def *write.ResourceDefinition, row write.Row, wctx *write.WriteContext, ext *write.FieldExtenderCollection, parent *parentLink) (write.Record, error) {
	shop := wctx.ShopUUID()
	scoped := def.HasField(tenant.ShopColumn)

	if ext != nil {
		if err := ext.Extend(def.Name, row, wctx); err != nil {
			return write.Record{}, write.NewRowWriteError(def.Name, write.ErrCodeExtension, err.Error())
		}
	}

	children, fieldErrs := splitChildren(def, row)
	values, convErrs := w.codec.columns(def, row)
	fieldErrs = append(fieldErrs, convErrs...)
	if len(fieldErrs) > 0 {
		return write.Record{}, write.NewFieldValidationError(def.Name, fieldErrs)
	}

	key, hasKey := values[def.PrimaryKey]
	owner, found, err := w.owner(tx, def, key, hasKey)
	if err != nil {
		return write.Record{}, err
	}
	if found && parent != nil && (!scoped || owner == shop) {
		if err := w.checkParent(tx, def, key, parent); err != nil {
			return write.Record{}, err
		}
	}

	insert := false
	switch mode {
	case write.ModeCreate:
		if found {
			return write.Record{}, write.NewRowWriteError(def.Name, write.ErrCodeDuplicate,
				fmt.Sprintf("%s %v already exists", def.Name, key))
		}
		insert = true
	case write.ModeUpdate:
		if !hasKey {
			return write.Record{}, write.NewFieldValidationError(def.Name, []write.FieldError{{
				Field: def.PrimaryKey, Code: write.ErrCodeRequired, Message: "This field is required",
			}})
		}
		if !found || (scoped && owner != shop) {
			return write.Record{}, write.NewRowWriteError(def.Name, write.ErrCodeNotFound,
				fmt.Sprintf("%s %v not found", def.Name, key))
		}
	case write.ModeUpsert:
		if found && scoped && owner != shop {
			return write.Record{}, write.NewRowWriteError(def.Name, write.ErrCodeDuplicate,
				fmt.Sprintf("%s %v belongs to another shop", def.Name, key))
		}
		insert = !found
	default:
		return write.Record{}, fmt.Errorf("unsupported write mode %q", mode)
	}

	now := w.now().UTC()
	if insert {
		if !hasKey {
			key = uuid.NewString()
			values[def.PrimaryKey] = key
		}
		if scoped && shop != "" {
			values[tenant.ShopColumn] = shop
		}
		if missing := missingRequired(def, values); len(missing) > 0 {
			return write.Record{}, write.NewFieldValidationError(def.Name, missing)
		}
		setTimestamp(def, values, "created_at", now)
		setTimestamp(def, values, "updated_at", now)
		if err := tx.Table(def.Table).Create(values).Error; err != nil {
			return write.Record{}, err
		}
	} else {
		delete(values, def.PrimaryKey)
		delete(values, tenant.ShopColumn)
		setTimestamp(def, values, "updated_at", now)
		if len(values) > 0 {
			q := tx.Table(def.Table).Where(def.PrimaryKey+" = ?", key)
			if scoped {
				q = q.Scopes(tenant.ShopScope(shop))
			}
			if err := q.Updates(values).Error; err != nil {
				return write.Record{}, err
			}
		}
	}

	storedRow, err := w.load(tx, def, key, shop)
	if err != nil {
		return write.Record{}, err
	}

	rec := write.NewRecord()
	if shop != "" {
		rec.SetScalar(write.ShopUUIDColumn, shop)
	}
	rec.Append(def.Name, map[string]any(storedRow))
	wctx.Set(def.Name, def.PrimaryKey, key)

	childMode := write.ModeUpsert
	if mode == write.ModeCreate {
		childMode = write.ModeCreate
	}
	for _, child := range children {
		childDef, ok := w.registry.Lookup(child.collection.Resource)
		if !ok {
			return write.Record{}, fmt.Errorf("child resource %q of %q is not registered", child.collection.Resource, def.Name)
		}
		for i, childRow := range child.rows {
			path := fmt.Sprintf("%s[%d]", child.collection.Field, i)
			childRow[child.collection.ForeignKey] = key
			link := &parentLink{resource: def.Name, foreignKey: child.collection.ForeignKey, key: key}
			childRec, err := w.writeRow(childTx(tx, path), childMode, childDef, childRow, wctx, ext, link)
			if err != nil {
				if rowErr, ok := write.AsRowWriteError(err); ok {
					return write.Record{}, nestRowError(def.Name, path, rowErr)
				}
				return write.Record{}, err
			}
			rec = write.Merge(rec, childRec)
		}
	}
	return rec, nil
}

// childTx narrows the row scope carried by tx to a nested child row so its
// statements are logged against it
func childTx(tx *gorm.DB, path string) *gorm.DB {
	ctx := tx.Statement.Context
	scope, ok := write.RowScopeFromContext(ctx)
	if !ok {
		return tx
	}
	return tx.WithContext(write.WithRowScope(ctx, scope.Child(path)))
}

// owner looks up the shop owning the row with the given key, ignoring the
// shop scope so a key taken by another shop can be told apart from a free one
func (w *GormResourceWriter) owner(tx *gorm.DB, def *write.ResourceDefinition, key any, hasKey bool) (string, bool, error) {
	if !hasKey {
		return "", false, nil
	}
	if !def.HasField(tenant.ShopColumn) {
		var count int64
		if err := tx.Table(def.Table).Where(def.PrimaryKey+" = ?", key).Count(&count).Error; err != nil {
			return "", false, fmt.Errorf("look up %s %v: %w", def.Name, key, err)
		}
		return "", count > 0, nil
	}

	var owners []string
	if err := tx.Table(def.Table).Where(def.PrimaryKey+" = ?", key).Limit(1).Pluck(tenant.ShopColumn, &owners).Error; err != nil {
		return "", false, fmt.Errorf("look up %s %v: %w", def.Name, key, err)
	}
	if len(owners) == 0 {
		return "", false, nil
	}
	return owners[0], true, nil
}

// checkParent rejects an existing child row that is linked to another parent.
// A child never moves between parents through a nested write.
func (w *GormResourceWriter) checkParent(tx *gorm.DB, def *write.ResourceDefinition, key any, parent *parentLink) error {
	var linked []string
	if err := tx.Table(def.Table).Where(def.PrimaryKey+" = ?", key).Limit(1).Pluck(parent.foreignKey, &linked).Error; err != nil {
		return fmt.Errorf("look up %s %v: %w", def.Name, key, err)
	}
	if len(linked) == 0 || linked[0] == fmt.Sprint(parent.key) {
		return nil
	}
	return write.NewRowWriteError(def.Name, write.ErrCodeConstraint,
		fmt.Sprintf("%s %v belongs to another %s", def.Name, key, parent.resource))
}

func (w *GormResourceWriter) load(tx *gorm.DB, def *write.ResourceDefinition, key any, shop string) (write.Row, error) {
	raw := map[string]any{}
	q := tx.Table(def.Table).Where(def.PrimaryKey+" = ?", key)
	if def.HasField(tenant.ShopColumn) {
		q = q.Scopes(tenant.ShopScope(shop))
	}
	if err := q.Take(&raw).Error; err != nil {
		return nil, fmt.Errorf("load %s %v: %w", def.Name, key, err)
	}
	return write.Row(stored(def, raw)), nil
}

func splitChildren(def *write.ResourceDefinition, row write.Row) ([]childRows, []write.FieldError) {
	var out []childRows
	var errs []write.FieldError
	for _, c := range def.Children {
		v, ok := row[c.Field]
		delete(row, c.Field)
		if !ok || v == nil {
			continue
		}

		var items []any
		switch t := v.(type) {
		case []any:
			items = t
		case []map[string]any:
			for _, m := range t {
				items = append(items, m)
			}
		default:
			errs = append(errs, write.FieldError{Field: c.Field, Code: write.ErrCodeInvalidType, Message: "expected a list of objects"})
			continue
		}

		rows := make([]write.Row, 0, len(items))
		for i, item := range items {
			r, ok := write.AsRow(item)
			if !ok {
				errs = append(errs, write.FieldError{
					Field:   fmt.Sprintf("%s[%d]", c.Field, i),
					Code:    write.ErrCodeInvalidType,
					Message: "expected an object",
					Value:   item,
				})
				continue
			}
			rows = append(rows, r.Clone())
		}
		out = append(out, childRows{collection: c, rows: rows})
	}
	return out, errs
}

func missingRequired(def *write.ResourceDefinition, values map[string]any) []write.FieldError {
	var errs []write.FieldError
	for _, f := range def.Fields {
		if !f.Required {
			continue
		}
		if v, ok := values[f.Name]; !ok || v == nil {
			errs = append(errs, write.FieldError{Field: f.Name, Code: write.ErrCodeRequired, Message: "This field is required"})
		}
	}
	return errs
}

func setTimestamp(def *write.ResourceDefinition, values map[string]any, column string, now time.Time) {
	if def.HasField(column) {
		values[column] = now
	}
}

// nestRowError reports a child row failure on the parent row, prefixing
// field paths with the child's position
func nestRowError(resource, path string, child *write.RowWriteError) *write.RowWriteError {
	out := write.NewRowWriteError(resource, child.Code, fmt.Sprintf("%s: %s", path, child.Message))
	for _, f := range child.Fields {
		out.WithField(path+"."+f.Field, f.Code, f.Message, f.Value)
	}
	return out
}

// classify maps translated driver errors onto row errors
func classify(resource string, err error) error {
	if _, ok := write.AsRowWriteError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return write.NewRowWriteError(resource, write.ErrCodeDuplicate, "a row with the same key already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return write.NewRowWriteError(resource, write.ErrCodeConstraint, "a referenced row does not exist")
	}
	return fmt.Errorf("write %s: %w", resource, err)
}

var _ write.ResourceWriter = (*GormResourceWriter)(nil)
