// Package relay implements the stream session against the mobile
// push-notification relay.
//
// A session:
//   - Maintains one websocket connection per subscriber token
//   - Forwards mirrored push notifications as events
//   - Treats nop keepalives and ping/pong as liveness
//   - Surfaces stale connections and transport closes as failures
package relay
