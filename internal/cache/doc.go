// Package cache keeps the downloaded audio of recently used attachments.
// It bounds the number of resident blobs, deduplicates concurrent
// downloads of the same attachment and prefetches the tracks adjacent to
// the one being played.
package cache
