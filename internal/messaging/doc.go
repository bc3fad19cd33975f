// Package messaging layers a role contract over postMessage between a host
// page and the frames it embeds.
//
// A channel is configured on one page element with a Role: send_only,
// send_and_receive, receive_only or receive_and_reply. Validate checks the
// options against the element before anything is opened. Sending channels
// post to the frame's content window targeted at their domain. Receiving
// channels register with the page's Dispatcher, which owns the single
// inbound listener of the page and routes every accepted message to the
// most recently registered receiver.
//
// In strict mode a message whose origin differs from the configured domain
// is dropped without reaching the handler and without an error. Install a
// DropHook to observe those drops.
package messaging
