/*
Package ports defines the driven ports (interfaces) of the live-coding host.

These interfaces decouple the supervisor and the host facade from concrete
implementations, so the same host can build Lua scripts or external processes and
persist its status in memory or in Redis.

# Key Interfaces

  - Builder: turns a source unit into a module handle plus diagnostics.
  - Catalog: resolves named modules for remote control surfaces.
  - StatusStore: persists supervisor status snapshots (domain.Status).
  - DistributedLocker: claims a host ID so only one controller publishes its status.
  - Watchable: signals that a source changed and a rebuild is due.
*/
package ports
