// Package runtime provides the execution context for prrebase commands.
//
// It encapsulates shared dependencies and configuration needed by commands,
// such as the logger, the repository config file and the repository root path.
package runtime
