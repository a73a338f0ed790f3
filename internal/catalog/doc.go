// Package catalog stores the release/song aggregate the split engine reads:
// artists and their owning accounts, releases, release artist roles, songs,
// and recorded artist owner-change events.
//
// The engine never derives ownership from anything but this data. A song
// whose release has no resolvable main primary artist simply has no owner;
// callers treat that as "no owner", never as an error.
package catalog
