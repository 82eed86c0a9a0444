/*
Package observability turns lifecycle events into logs and Prometheus metrics.

Both are exposed as domain.LifecycleHooks, so they can be combined with domain.ChainHooks
and handed to the Workbench and the relay handler.
*/
package observability
