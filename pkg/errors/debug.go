package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDiagnostics carries the server-side fields of a Postgres error.
type PGDiagnostics struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Diagnostics flattens an error chain for logs and operator output.
type Diagnostics struct {
	Message string
	Code    Code
	Chain   []string
	PG      *PGDiagnostics
}

// Inspect walks err and pulls out the application code and any Postgres
// diagnostics from either pgx or lib/pq.
func Inspect(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	d := Diagnostics{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PG = &PGDiagnostics{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
		return d
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PG = &PGDiagnostics{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return d
}

// Fields returns the non-empty diagnostics as flat log fields.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if d.PG == nil {
		return fields
	}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("pg_code", d.PG.Code)
	put("pg_constraint", d.PG.Constraint)
	put("pg_table", d.PG.Table)
	put("pg_column", d.PG.Column)
	put("pg_detail", d.PG.Detail)
	return fields
}
