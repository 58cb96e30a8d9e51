package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertSpec describes a keyed bulk upsert.
type UpsertSpec struct {
	Table   string
	Columns []string
	Keys    []string
	// Update lists the columns rewritten on conflict; nil means every
	// non-key column.
	Update []string
}

// Upsert stages rows in a temp table with COPY, then merges them into the
// target with INSERT ... ON CONFLICT, all in one transaction.
func Upsert(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(spec.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns")
	}
	if len(spec.Keys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys")
	}

	stage := "_stage_" + strings.ReplaceAll(spec.Table, ".", "_")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(), Ident(spec.Table).Sanitize())
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", spec.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, spec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into stage for %s", spec.Table)
	}

	tag, err := tx.Exec(ctx, MergeSQL(spec, stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", spec.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	return tag.RowsAffected(), nil
}

// MergeSQL renders the INSERT ... ON CONFLICT statement that moves staged
// rows into the target table.
func MergeSQL(spec UpsertSpec, stage string) string {
	update := spec.Update
	if update == nil {
		keys := make(map[string]bool, len(spec.Keys))
		for _, k := range spec.Keys {
			keys[k] = true
		}
		for _, c := range spec.Columns {
			if !keys[c] {
				update = append(update, c)
			}
		}
	}

	cols := quoteList(spec.Columns)
	action := "DO NOTHING"
	if len(update) > 0 {
		sets := make([]string, len(update))
		for i, c := range update {
			q := pgx.Identifier{c}.Sanitize()
			sets[i] = q + " = EXCLUDED." + q
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		Ident(spec.Table).Sanitize(), cols, cols, pgx.Identifier{stage}.Sanitize(), quoteList(spec.Keys), action)
}

func quoteList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
