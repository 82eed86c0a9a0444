/*
Package ports defines the driven ports (interfaces) of the openagi backend.

These interfaces decouple the workbench from external implementations, allowing it to
work with various storage backends and relay transports.

# Key Interfaces

  - WorkspaceStore: Responsible for holding workspace (canvas) state between requests.
  - DistributedLocker: Provides distributed locking for concurrent workspace access.
  - Relay: Forwards one prompt to the model API and returns the generated text.
*/
package ports
