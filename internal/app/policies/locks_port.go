package policies

import domainlisting "staybook/internal/domain/listing"

// ListingLocker serializes checkout attempts per listing, closing the window
// between the availability check and the hold insert. A nil locker reproduces
// the unserialized behavior of the original system.
type ListingLocker interface {
	// Lock blocks until the listing lock is held and returns the release func.
	Lock(id domainlisting.ListingID) (unlock func())
}
