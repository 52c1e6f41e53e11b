package models

// Bank is a reference row in the banks table. Rows are created on demand
// when a signup names a bank the directory has not seen before.
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
