// Package blender wraps the external Blender renderer behind a typed
// request/response contract.
//
// The CLI client writes the render request as a JSON scene spec next to an
// embedded Python driver, then runs blender in background mode under the
// configured wall-clock timeout. The orchestrator never sees a script; it
// hands over a Request and receives artifact paths back for cleanup.
package blender
