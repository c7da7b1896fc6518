// Package catalog holds the storefront's product catalog and category list.
//
// The catalog is static for the lifetime of a session: it is seeded either
// from the built-in defaults or from a CUE file validated against the
// #Catalog schema (see LoadCUE). Items never carry cart state; quantities
// live on the cart entries owned by the state store.
//
// Categories are exposed through WithAll, which prefixes the synthetic
// AllCategory entry and sorts the remaining labels after NFC normalisation.
package catalog
