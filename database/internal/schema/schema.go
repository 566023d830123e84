// Package schema compares the columns of a metadata table against the layout
// its backend migrates to.
package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrTableMissing is returned by Compare when the table has no columns.
var ErrTableMissing = errors.New("table does not exist")

// Column is the expected definition of one column. Type is compared
// case-insensitively.
type Column struct {
	Type     string
	Nullable bool
}

// Table maps column names to their definitions.
type Table map[string]Column

// Compare checks every column of want against got. Extra columns in got are
// allowed. An empty got means the table does not exist.
func Compare(table string, want, got Table) error {
	if len(got) == 0 {
		return fmt.Errorf("%w: %s", ErrTableMissing, table)
	}

	var missing, mismatched []string
	for _, name := range slices.Sorted(maps.Keys(want)) {
		exp := want[name]
		act, ok := got[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !strings.EqualFold(act.Type, exp.Type) {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected %s, got %s", name, exp.Type, act.Type))
		}
		if act.Nullable != exp.Nullable {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, exp.Nullable, act.Nullable))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "table %s schema validation failed:", table)
	if len(missing) > 0 {
		fmt.Fprintf(&msg, " missing columns: %s;", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		fmt.Fprintf(&msg, " mismatched columns: %s;", strings.Join(mismatched, "; "))
	}
	return errors.New(strings.TrimSuffix(msg.String(), ";"))
}
