// Package player orchestrates track loading, transport controls and event
// handling for the attachment playlist. It composes the blob cache, the
// pitch/tempo controller and the A/B loop controller.
//
// A Player serialises its state with a mutex that is released while a
// blob or preference is being fetched. Every load carries a token; a load
// that observes a newer token after reacquiring the lock abandons its
// result.
package player
