/*
Package domain contains the plain data types shared by the supervisor and its adapters.

It has no behaviour and no dependencies beyond the standard library, so ports and
adapters can exchange these values without importing the supervisor.

# Key Entities

  - State: the supervisor lifecycle state (idle, loaded, playing, ...).
  - Status: a point-in-time snapshot of a supervisor, persisted by status stores.
  - StateChange: one observable transition, as delivered to hooks and relays.
  - SessionMessage: a module message tagged with its run session.
*/
package domain
