package postgres

import "fmt"

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Documents     string
	Notifications string
	Presence      string
	Users         string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Documents:     fmt.Sprintf("%sdocuments", prefix),
		Notifications: fmt.Sprintf("%snotifications", prefix),
		Presence:      fmt.Sprintf("%spresence", prefix),
		Users:         fmt.Sprintf("%susers", prefix),
	}
}
