// Package orbit plans the camera rotation keyframes for one full loop.
//
// The animation is split into six nominally equal segments, each advancing
// the cumulative rotation by 60° on one or two axes in the order
// Z, XZ, X, XY, Y, YZ. A final keyframe is always pinned at the last frame
// with (360°,360°,360°) so the closing orientation matches the opening one
// modulo a full turn. Interpolation between consecutive keyframes is linear,
// giving constant angular velocity within a segment.
package orbit
