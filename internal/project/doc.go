// Package project is the typed data layer of an address-slip project: the
// campaign settings plus areas, and within each area its streets,
// addresses and canvassing teams.
//
// A Project wraps a store.Store. Areas are reached through AreaDB handles
// returned by OpenArea and AddArea; every query a handle runs is filtered
// by its area ID, and the schema rejects rows that link across areas.
//
// # Partial updates
//
// Update structs use a nil pointer for "leave unchanged". Nullable columns
// use Field, which also distinguishes clearing the column:
//
//	_, err := area.UpdateAddress(ctx, id, project.AddressUpdate{
//	    Verified: &verified,
//	    StreetID: project.Null[int64](),
//	})
//
// # Errors
//
// Lookups by ID (Street, Address, Team) return nil, nil when nothing
// matches. Updates and deletes of missing rows return ErrStreetNotFound,
// ErrAddressNotFound or ErrTeamNotFound. Database constraint failures are
// *store.ConstraintError and match store.ErrForeignKey, store.ErrUnique and
// friends with errors.Is.
package project
