// Package csync provides thread-safe concurrent data structures.
//
// This package implements generic, thread-safe versions of common Go data
// structures like maps and slices. All operations are protected by
// read-write mutexes to ensure safe concurrent access from multiple
// goroutines.
//
// Example usage:
//
//	// Thread-safe map
//	entries := csync.NewMap[string, string]()
//	entries.Set("abc123", html)
//	if html, exists := entries.Get("abc123"); exists {
//		// Use html safely
//	}
//
//	// Thread-safe slice used as a queue
//	queue := csync.NewSlice[int]()
//	queue.Append(3, 4)
//	if idx, ok := queue.Shift(); ok {
//		// Process idx
//	}
//
// All operations are thread-safe and can be called concurrently from
// multiple goroutines without additional synchronization.
package csync
