/*
Package lua builds and runs live-coded Lua scripts (Shopify/go-lua).

A script defines a global function run and, optionally, pause and resume:

	local n = 0
	function run()
	  while not host.cancelled() do
	    n = n + 1
	    host.send("tick", tostring(n))
	    host.sleep(100)
	  end
	end

	function pause() host.log("paused at " .. n) end

The host table exposes send(topic, payload), cancelled(), paused(), sleep(ms) and
log(msg). sleep returns false as soon as the run is cancelled. Cancellation is
cooperative: a loop that never calls into host cannot be stopped.

The Lua state is single-threaded, so pause and resume are not called when the
supervisor asks; they are queued and run on the script's goroutine at its next
host call.
*/
package lua
