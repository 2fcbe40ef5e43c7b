package model

// Page bounds a message listing. A zero Page means the full history.
type Page struct {
	Limit    int
	BeforeID uint
}
