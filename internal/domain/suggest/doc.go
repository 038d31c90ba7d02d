// Package suggest recovers from failed tag lookups.
//
// The Index is a patricia trie of tokens drawn from every cached record.
// It answers exact membership, prefix completion, and closest-spelling
// queries. RuleBased produces plural and singular variants of a tag, and
// the Suggester combines both into a single suggestion URL that is always
// non-empty.
package suggest
