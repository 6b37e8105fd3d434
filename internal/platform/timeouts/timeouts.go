// Package timeouts defines shared timeout constants used across the POS
// client. Centralizing these values prevents drift between layers and makes
// the durations discoverable.
package timeouts

import "time"

// HTTPRequest caps the time allowed for a single orders or catalog API
// request.
const HTTPRequest = 10 * time.Second

// OrderResolve bounds the wait between order submission and the
// authoritative push outcome. When it expires, the coordinator resolves the
// order as failed and unblocks the cart.
const OrderResolve = 30 * time.Second

// ReconnectBase is the initial event-channel reconnect delay.
const ReconnectBase = time.Second

// ReconnectCap is the maximum event-channel reconnect delay.
const ReconnectCap = 10 * time.Second
