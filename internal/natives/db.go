package natives

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pasalang/pasa/internal/vm"
)

// dbHandle wraps an open database connection as an opaque VM object.
type dbHandle struct {
	db   *sql.DB
	path string
}

func (h *dbHandle) Type() vm.ObjectType { return "db" }
func (h *dbHandle) Inspect() string     { return fmt.Sprintf("<db %s>", h.path) }

func dbNatives() []*vm.NativeFunction {
	return []*vm.NativeFunction{
		{Name: "db_open", Arity: 1, Fn: nativeDbOpen},
		{Name: "db_exec", Arity: 2, Fn: nativeDbExec},
		{Name: "db_query", Arity: 2, Fn: nativeDbQuery},
		{Name: "db_close", Arity: 1, Fn: nativeDbClose},
	}
}

func asDbHandle(v vm.Value) (*dbHandle, error) {
	if v.IsObj() {
		if h, ok := v.Obj.(*dbHandle); ok {
			return h, nil
		}
	}
	return nil, fmt.Errorf("expected a db handle, got %s", v.TypeName())
}

// nativeDbOpen opens (or creates) a SQLite database. Use ":memory:" for an
// in-memory database.
func nativeDbOpen(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return vm.NilVal(), fmt.Errorf("expected one string argument (path)")
	}
	path := args[0].AsString()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return vm.NilVal(), err
	}
	return vm.ObjVal(&dbHandle{db: db, path: path}), nil
}

// nativeDbExec runs a statement and returns the affected row count.
// Extra arguments after the SQL text are bound as placeholders.
func nativeDbExec(args []vm.Value) (vm.Value, error) {
	if len(args) < 2 || !args[1].IsString() {
		return vm.NilVal(), fmt.Errorf("expected (db, sql, params...)")
	}
	h, err := asDbHandle(args[0])
	if err != nil {
		return vm.NilVal(), err
	}
	params := make([]interface{}, 0, len(args)-2)
	for _, arg := range args[2:] {
		params = append(params, ToGo(arg))
	}
	res, err := h.db.Exec(args[1].AsString(), params...)
	if err != nil {
		return vm.NilVal(), err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return vm.NumberVal(0), nil
	}
	return vm.NumberVal(float64(affected)), nil
}

// nativeDbQuery runs a query and returns an array of row objects keyed by
// column name, in result order.
func nativeDbQuery(args []vm.Value) (vm.Value, error) {
	if len(args) < 2 || !args[1].IsString() {
		return vm.NilVal(), fmt.Errorf("expected (db, sql, params...)")
	}
	h, err := asDbHandle(args[0])
	if err != nil {
		return vm.NilVal(), err
	}
	params := make([]interface{}, 0, len(args)-2)
	for _, arg := range args[2:] {
		params = append(params, ToGo(arg))
	}
	rows, err := h.db.Query(args[1].AsString(), params...)
	if err != nil {
		return vm.NilVal(), err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return vm.NilVal(), err
	}

	result := &vm.ObjArray{}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return vm.NilVal(), err
		}
		row := vm.NewObjMap()
		for i, col := range columns {
			value, err := FromGo(raw[i])
			if err != nil {
				return vm.NilVal(), err
			}
			row.Set(col, value)
		}
		result.Elements = append(result.Elements, vm.ObjVal(row))
	}
	if err := rows.Err(); err != nil {
		return vm.NilVal(), err
	}
	return vm.ObjVal(result), nil
}

func nativeDbClose(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	h, err := asDbHandle(args[0])
	if err != nil {
		return vm.NilVal(), err
	}
	if err := h.db.Close(); err != nil {
		return vm.NilVal(), err
	}
	return vm.BoolVal(true), nil
}
