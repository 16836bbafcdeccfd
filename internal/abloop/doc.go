// Package abloop implements the A/B loop region: capturing loop points,
// keeping playback inside the loop and mirroring it in an optional
// waveform view.
//
// The controller holds no lock of its own. It is driven from the player's
// dispatch point, which serialises every call.
package abloop
