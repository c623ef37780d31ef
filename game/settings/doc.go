// Package settings holds the player facing game configuration.
//
// A Store keeps two copies of Settings: the committed copy that drives the
// active board and a staged copy edited by the admin surface. Commit copies
// staged over committed and notifies listeners (the session rebuilds its
// board); Discard throws the staged edits away.
//
// Uploaded images live in an Arena owned by the store and are referenced by
// "blob:" handles. After every change the store releases the handles that
// neither copy references, and Close releases all of them.
package settings
