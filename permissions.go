package ygggo_db

import "strings"

// Permission is a bitmask of table privileges.
type Permission uint8

const (
	PermSelect Permission = 1 << iota
	PermInsert
	PermUpdate
	PermDelete

	PermAll = PermSelect | PermInsert | PermUpdate | PermDelete
)

// Keywords returns the SQL privilege names set in p, always in the order
// SELECT, INSERT, UPDATE, DELETE.
func (p Permission) Keywords() []string {
	var out []string
	if p&PermSelect != 0 {
		out = append(out, "SELECT")
	}
	if p&PermInsert != 0 {
		out = append(out, "INSERT")
	}
	if p&PermUpdate != 0 {
		out = append(out, "UPDATE")
	}
	if p&PermDelete != 0 {
		out = append(out, "DELETE")
	}
	return out
}

// String renders p as a comma separated privilege list, e.g. "SELECT,DELETE".
func (p Permission) String() string {
	return strings.Join(p.Keywords(), ",")
}
