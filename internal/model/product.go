package model

import "time"

// Product is one row of the products table. Columns mirror the server payload;
// only the fields the core itself reads are broken out here, the rest travel
// through the sync layer untouched.
type Product struct {
	ID        int
	GroupID   int
	PackID    int
	ItemNum   string
	NameNl    string
	NameFr    string
	Type      string
	IsNew     bool
	StackSize int
	MinOrder  int
	SortOrder int
}

// VisitNote is a sent (server-synced) visit note.
type VisitNote struct {
	Customer int
	Address  int
	Date     time.Time
	Text     string
}

// UnsentVisitNote is a locally written note waiting in the outbox. It is
// posted to the server as-is once the device is online.
type UnsentVisitNote struct {
	ID                int       `json:"id"`
	Customer          int       `json:"customer"`
	Address           int       `json:"address"`
	Date              time.Time `json:"date"`
	Text              string    `json:"text"`
	NextVisit         string    `json:"nextVisit,omitempty"`
	CustomerCloseFrom string    `json:"customerCloseFrom,omitempty"`
	CustomerOpenFrom  string    `json:"customerOpenFrom,omitempty"`
	ToSend            bool      `json:"toSend"`
}
