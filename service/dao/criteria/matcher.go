// Package criteria holds shared list-filter helpers for DAO implementations.
package criteria

import (
	"github.com/mlgate/mlgate/service/dao"
)

// FilterByState matches a record's state against an optional single "State"
// parameter carrying either a string or a list of acceptable states.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	switch len(parameters) {
	case 0:
		return true
	case 1:
		if parameters[0].Name == "State" {
			switch actual := parameters[0].Value.(type) {
			case string:
				return state == actual
			case []string:
				for _, s := range actual {
					if state == s {
						return true
					}
				}
				return false
			}
		}
	}
	return true
}
