// Package tags holds the durable tag record cache.
//
// The store maps normalized tags (spaces replaced with underscores) to
// records and rewrites its JSON file on every mutation. Records keep the
// order they were first inserted in, both on disk and in search results.
//
// A derived index can be attached with SetIndexer; it is rebuilt from the
// full record set after each write and on load.
//
//	store := tags.NewStore("tag_data.json", logger)
//	store.Load()
//	store.SetIndexer(index)
//	hits := store.Search("cat ears")
package tags
