// Package cli serves the dictionary as a line-oriented TCP console.
//
// Each connection is one session. Requests are single lines split with
// shell-style quoting, so string literals may contain spaces:
//
//	get <uri>                      -> <value>
//	set <uri> <literal>            -> OK
//	signal <uri>                   -> OK
//	subscribe <uri>                -> OK
//	unsubscribe <uri>              -> OK
//	browse [uri]                   -> one line per node, then OK
//	userlevel                      -> <level>
//	userlevel <level> [credential] -> OK
//	poll                           -> pending UPDATE lines, then OK
//	help                           -> command list, then OK
//	quit                           -> OK, connection closed
//
// Failures reply "ERROR <code>: <message>". Updates for subscribed leaves
// are pushed as they arrive:
//
//	UPDATE laser1:power 2026-03-01T12:00:00.000000000Z 0.5
//
// Literals use the value text syntax: true/false, numbers, raw strings,
// hex for bytes and JSON arrays for sequences and tuples.
package cli
