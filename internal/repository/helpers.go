package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

// fieldUpdate renders the SET clause for an audited patch. Column names are checked against
// allowed; values are bound as text and cast by Postgres to the column type.
type fieldUpdate struct {
	sets []string
	args []interface{}
}

func buildFieldUpdate(values map[string]*string, allowed map[string]struct{}, actorID *string) (*fieldUpdate, error) {
	columns := make([]string, 0, len(values))
	for column := range values {
		if _, ok := allowed[column]; !ok {
			return nil, fmt.Errorf("column %q is not updatable", column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	u := &fieldUpdate{}
	for _, column := range columns {
		u.args = append(u.args, values[column])
		u.sets = append(u.sets, fmt.Sprintf("%s = $%d", column, len(u.args)))
	}
	u.args = append(u.args, actorID)
	u.sets = append(u.sets, fmt.Sprintf("last_updated_by = $%d", len(u.args)))
	u.args = append(u.args, time.Now().UTC())
	u.sets = append(u.sets, fmt.Sprintf("updated_at = $%d", len(u.args)))
	return u, nil
}

// query builds "UPDATE table SET ... WHERE keyColumn = $n RETURNING columns".
func (u *fieldUpdate) query(table, keyColumn string, key interface{}, returning string) (string, []interface{}) {
	args := append(u.args, key)
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		table, strings.Join(u.sets, ", "), keyColumn, len(args), returning), args
}

func columnSet(columns ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		out[c] = struct{}{}
	}
	return out
}

// ErrStaleWrite reports a conditional update that matched no row.
var ErrStaleWrite = errors.New("row changed concurrently")
