/*
Package livehost is a live-coding host: it loads user-authored modules, runs them
under a supervised lifecycle, streams their messages back to the host and gates every
load on build diagnostics.

# Concept

A module is anything that implements module.Module: advisory Pause and Resume hooks
plus a Run body that honours context cancellation and talks to the host only through
a channel.Sender. The supervisor owns at most one module at a time and moves it
through Idle, Loaded, Playing, Paused, Stopping, Faulted and Stuck.

Builds never run code that failed to compile. A builder turns source into a handle
plus a list of diagnostic.Error records; any fatal record blocks the load and the
records are forwarded to subscribers so an editor can show them.

# Key Features

  - Hot-swap: a running module is replaced without passing through Idle.
  - Cooperative stop: Stop cancels the run context and waits a bounded time. A module
    that ignores cancellation leaves the host Stuck instead of being killed.
  - Ordered delivery: messages of a session reach subscribers in send order, before the
    state change that ends the session.
  - Adapters: Lua scripts (Shopify/go-lua), OS processes, memory/file/Redis status
    stores, a Watermill relay and an HTTP control surface.

# Usage

	host := livehost.New(nil, livehost.WithBuilder(lua.NewBuilder()))
	defer host.Close(ctx)

	host.Subscribe(supervisor.Hooks{
		OnMessage: func(ctx context.Context, m domain.SessionMessage) {
			fmt.Println(m.Topic, m.Payload)
		},
	})

	src, _ := file.NewSource("main.lua").Read()
	if _, err := host.Run(ctx, src); err != nil {
		var gate *supervisor.GateError
		if errors.As(err, &gate) {
			diagnostic.Render(os.Stderr, host.Diagnostics())
		}
	}
*/
package livehost
