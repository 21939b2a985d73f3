package models

// User is an account known to the backend. GoogleID is empty for accounts
// that never went through the identity provider.
type User struct {
	ID       string
	GoogleID string
	Name     string
	Email    string
	Photo    string
	DtReg    int64
	DtModify int64
}
