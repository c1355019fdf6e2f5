package model

// Customer identifies the active ordering context: a customer plus one of its
// delivery addresses plus the address group the server placed it in. Product
// visibility and pricing are resolved against this triple.
type Customer struct {
	ID             int
	AddressID      int
	AddressGroupID int
	Name           string
	City           string
}

// ExceptionRule is one row of productExceptions. Scope is encoded the way the
// server sends it: the default rule has customer=0, address=0, addressGroup=0;
// a customer rule sets only Customer; an address rule sets Customer+Address;
// an address-group rule sets only AddressGroup.
type ExceptionRule struct {
	Customer     int
	Address      int
	AddressGroup int
	Deny         bool
	List         string // comma-separated item codes
}
