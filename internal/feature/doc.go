// Package feature holds the per-entity read and write operations the views
// use. Reads are query subscriptions; writes validate their input, run as
// query mutations and invalidate the keys they affect.
//
// Table status changes and item availability are optimistic: the cache shows
// the new value immediately and reverts it if the server refuses.
package feature
