/*
Package session implements workspace access orchestration.

It serializes read-modify-write cycles on a workspace, optionally across replicas
through a distributed locker, and tracks which workspaces have a run in flight.
*/
package session
