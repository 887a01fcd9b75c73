// Package tree provides the object dictionary: a hierarchical namespace of
// typed parameters and events shared by every connected session.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                            Tree                              │
//	│                                                              │
//	│   root (Container, URI "")                                   │
//	│    ├── laser1 (Container)                                    │
//	│    │    ├── enable  (Parameter bool, write >= service)       │
//	│    │    ├── power   (Parameter float)                        │
//	│    │    └── fire    (Event)                                  │
//	│    └── system (Container)                                    │
//	│         └── uptime (Parameter int, read-only)                │
//	│                                                              │
//	│   Write ─▶ check ─▶ hook ─▶ store ─▶ notify subscribers      │
//	└──────────────────────────────────────┬───────────────────────┘
//	                                       │ weakref.Ref[Subscriber]
//	                                       ▼
//	                          session queues (updates.Queue)
//
// # Addressing
//
// A node's URI is the path of names from the root. Segments may be separated
// by ':' or '/' on input; the canonical form joins them with ':'. The root's
// URI is the empty string. Sibling names are unique, so URIs are unique.
//
// # Concurrency
//
// A single RWMutex guards the tree. Write, Signal and subscription changes
// take the write side, so a write and the notification of every subscriber
// are observed together. Subscribers are held through weak references; a
// reference whose session has been torn down is skipped and pruned.
//
// # Errors
//
// Every operation is synchronous and returns nil or one of the sentinel
// errors in errors.go, wrapped with the URI involved.
package tree
