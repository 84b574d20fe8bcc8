// Package session drives one AR view through its lifecycle.
//
// A Machine reconciles three asynchronous inputs: host show/hide hooks,
// capability grant results, and GPS fixes. It decides when the rendering
// surface and the location sensor start and stop, buffers render jobs until a
// surface exists, and feeds every fix through a geo.Anchor so the surface
// receives offsets in a frame anchored at the first fix.
//
// Lifecycle
//
//	created              -> awaiting_permissions | ready
//	awaiting_permissions -> ready
//	ready                -> running
//	running              -> paused
//	paused               -> running
//	any                  -> created (OnDestroy)
//
// A denied grant leaves the machine in awaiting_permissions with nothing
// outstanding; the next show hook checks again and, if still missing, asks
// again. In GPS mode ready -> running waits for the first fix. Pausing keeps
// the reference fix, so a resumed session continues in the same frame.
//
// Concurrency
//
// A Machine is a single logical actor and is not safe for concurrent use.
// Every hook, grant result and fix must be delivered from one goroutine. No
// hook blocks on another; waits for grants or a first fix have no timeout.
package session
