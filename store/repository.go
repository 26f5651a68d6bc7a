package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/arllen133/entrybook/clause"
)

// Repository runs single-row statements for model T.
//
// Where returns a copy, so a scoped repository never leaks its conditions
// into the one it was derived from:
//
//	repo := store.NewRepository[Entry](session)
//	if err := repo.Create(ctx, e); err != nil {
//	    return err
//	}
//	n, err := repo.Delete(ctx, e.ID)
type Repository[T any] struct {
	session *Session
	schema  Schema[T]
	scopes  []clause.Expression
}

// NewRepository binds T's registered schema to session. session may be a
// transaction session.
func NewRepository[T any](session *Session) *Repository[T] {
	return &Repository[T]{
		session: session,
		schema:  LoadSchema[T](),
	}
}

// Where returns a repository whose statements also require conds.
func (r *Repository[T]) Where(conds ...clause.Expression) *Repository[T] {
	scopes := make([]clause.Expression, 0, len(r.scopes)+len(conds))
	scopes = append(scopes, r.scopes...)
	scopes = append(scopes, conds...)

	next := *r
	next.scopes = scopes
	return &next
}

// Create inserts model and, for auto-increment keys, writes the assigned id
// back into it.
func (r *Repository[T]) Create(ctx context.Context, model *T) error {
	if err := triggerBeforeCreate(ctx, model); err != nil {
		return err
	}

	cols, vals := r.schema.InsertRow(model)
	query, args, err := sq.Insert(r.schema.TableName()).
		Columns(cols...).
		Values(vals...).
		PlaceholderFormat(r.session.dialect.PlaceholderFormat()).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build insert: %w", err)
	}

	result, err := r.session.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if r.schema.AutoIncrement() {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: last insert id: %w", err)
		}
		r.schema.SetPK(model, id)
	}

	return triggerAfterCreate(ctx, model)
}

// Update writes every mutable column of model to the row with model's key
// and returns the number of rows affected. Zero means no row matched.
func (r *Repository[T]) Update(ctx context.Context, model *T) (int64, error) {
	if err := triggerBeforeUpdate(ctx, model); err != nil {
		return 0, err
	}

	pk := r.schema.PK(model)
	builder := sq.Update(r.schema.TableName()).
		SetMap(r.schema.UpdateMap(model)).
		Where(sq.Eq{pk.Column.Name: pk.Value})

	affected, err := r.execUpdate(ctx, builder)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	return affected, triggerAfterUpdate(ctx, model)
}

// UpdateColumns assigns only the given columns on the row with key id.
// Hooks do not run; there is no model instance.
func (r *Repository[T]) UpdateColumns(ctx context.Context, id any, assignments ...clause.Assignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	pk := r.schema.PK(nil)
	builder := sq.Update(r.schema.TableName()).
		Where(sq.Eq{pk.Column.Name: id})
	for _, a := range assignments {
		builder = builder.Set(a.Column.ColumnName(), a.Value)
	}
	return r.execUpdate(ctx, builder)
}

func (r *Repository[T]) execUpdate(ctx context.Context, builder sq.UpdateBuilder) (int64, error) {
	for _, scope := range r.scopes {
		builder = builder.Where(sqlizer{scope})
	}
	query, args, err := builder.PlaceholderFormat(r.session.dialect.PlaceholderFormat()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build update: %w", err)
	}
	return r.exec(ctx, query, args)
}

// Delete removes the row with key id and returns the number of rows
// affected.
func (r *Repository[T]) Delete(ctx context.Context, id any) (int64, error) {
	pk := r.schema.PK(nil)
	return r.delete(ctx, sq.Eq{pk.Column.Name: id})
}

// DeleteModel removes model's row, running the delete hooks around it.
func (r *Repository[T]) DeleteModel(ctx context.Context, model *T) (int64, error) {
	if err := triggerBeforeDelete(ctx, model); err != nil {
		return 0, err
	}
	pk := r.schema.PK(model)
	affected, err := r.delete(ctx, sq.Eq{pk.Column.Name: pk.Value})
	if err != nil || affected == 0 {
		return affected, err
	}
	return affected, triggerAfterDelete(ctx, model)
}

func (r *Repository[T]) delete(ctx context.Context, key sq.Eq) (int64, error) {
	builder := sq.Delete(r.schema.TableName()).Where(key)
	for _, scope := range r.scopes {
		builder = builder.Where(sqlizer{scope})
	}
	query, args, err := builder.PlaceholderFormat(r.session.dialect.PlaceholderFormat()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build delete: %w", err)
	}
	return r.exec(ctx, query, args)
}

func (r *Repository[T]) exec(ctx context.Context, query string, args []any) (int64, error) {
	result, err := r.session.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: rows affected: %w", err)
	}
	return affected, nil
}

// Query starts a SELECT over T's table carrying the repository's scopes.
func (r *Repository[T]) Query() *QueryBuilder[T] {
	q := Query[T](r.session)
	for _, scope := range r.scopes {
		q = q.Where(scope)
	}
	return q
}

// FindOne returns the row with key id, or ErrNotFound.
func (r *Repository[T]) FindOne(ctx context.Context, id any) (*T, error) {
	pk := r.schema.PK(nil)
	return r.Query().Where(clause.Eq{Column: pk.Column, Value: id}).Take(ctx)
}
