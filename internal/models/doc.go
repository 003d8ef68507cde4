// Package models defines persistent entities and the repository interface for spotx.
//
// The only entity is [Lookup], a history record of a resolved input. It stores the input,
// its resource kind and id, and a display name; never the catalog response itself.
//
// Entities implement [Model], providing ID, timestamps and validation, and support soft
// deletes. The Repository[T] interface defines the standard CRUD operations.
package models
