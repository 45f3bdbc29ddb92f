// Command plinth turns directories of 3D model files into short orbiting
// video clips. It tracks work in a SQLite queue, drives Blender for frame
// rendering, and ffmpeg for video assembly and audio muxing.
package main
