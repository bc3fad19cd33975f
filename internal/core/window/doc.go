// Package window models browsing contexts that exchange postMessage-style
// messages over a network.PubSub.
//
// Ownership boundary:
//   - origins and target-origin matching on delivery
//   - the per-window event loop and its message listeners
//   - frame and container elements that bind a page element to a target
//
// Every window runs a single event loop, so listeners of one window never
// run concurrently and see messages from one sender in publish order.
package window
