package gormtrace

import (
	"database/sql"
	"database/sql/driver"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

// formatQueryArgs renders statement parameters for the db.query_args
// field. Positional values pass through formatted; named values render
// as "name=value".
func formatQueryArgs(vars []interface{}) []interface{} {
	args := make([]interface{}, 0, len(vars))
	for _, v := range vars {
		switch nv := v.(type) {
		case sql.NamedArg:
			args = append(args, trace.FormatNamedQueryValue(nv.Name, nv.Value))
		case driver.NamedValue:
			if nv.Name != "" {
				args = append(args, trace.FormatNamedQueryValue(nv.Name, nv.Value))
			} else {
				args = append(args, trace.FormatQueryValue(nv.Value))
			}
		default:
			args = append(args, trace.FormatQueryValue(v))
		}
	}
	return args
}
