// Package transport holds what every dictd transport shares: the error
// codes peers see, decoding of wire values against a parameter's declared
// type, and the endpoint description of sessions that have no network peer.
//
// The transports themselves live in subpackages:
//
//	cli      line-oriented TCP console
//	httpapi  REST request/response (chi)
//	ws       JSON-RPC 2.0 over websocket (gorilla)
//	mirror   MQTT state mirror (paho)
//	ticker   periodic telemetry sampling (InfluxDB)
package transport
