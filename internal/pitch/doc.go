// Package pitch keeps the desired pitch and tempo of playback and forwards
// them, best effort, to an audio-processing node. The desired values are
// what the UI shows; the node follows when it can.
package pitch
