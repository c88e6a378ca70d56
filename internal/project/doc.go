// Package project keeps named WBS trees in memory for the service
// surfaces.
//
// Each project has:
//   - a unique ID (UUID)
//   - a unique, human-readable name
//   - one forest of tasks, replaced by outline or fragment imports
//
// The Manager serializes mutation with a single RWMutex. Reads return deep
// copies, so callers never observe a tree while a scoring pass writes
// effective scores into it.
package project
