/*
Package supervisor owns a single loaded module and drives it through its lifecycle.

	Idle --Load--> Loaded --Play--> Playing <--Pause/Play--> Paused
	                  ^                 |                       |
	                  |               Stop                    Stop
	           Run returns nil          v                       v
	                  |             Stopping ----------------> Idle
	                  |                 |
	                  +------------- (timeout) --> Stuck --Abandon--> Idle

HotSwap replaces the module of a Playing or Paused supervisor without passing through
Idle: observers see Playing(A) followed directly by Playing(B), or Faulted when the
new build is rejected by the diagnostics gate. A Run that returns an error or panics
moves the supervisor to Faulted.

Control operations are serialized. State and Status are lock-free reads. Observers
register Hooks with Subscribe; delivery is ordered and happens on a dedicated
goroutine, so every message of a session reaches observers before the state change
that ends that session.
*/
package supervisor
