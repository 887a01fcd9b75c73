// Package ws serves the dictionary over websocket using JSON-RPC 2.0.
//
// Each websocket connection owns one session. Requests are objects with
// named params:
//
//	{"jsonrpc":"2.0","id":1,"method":"get","params":{"uri":"laser1:power"}}
//	{"jsonrpc":"2.0","id":2,"method":"set","params":{"uri":"laser1:power","value":0.8}}
//	{"jsonrpc":"2.0","id":3,"method":"subscribe","params":{"uri":"laser1:power"}}
//	{"jsonrpc":"2.0","id":4,"method":"change_ul","params":{"userlevel":"service","credential":"..."}}
//
// Subscribed changes arrive as notifications:
//
//	{"jsonrpc":"2.0","method":"update","params":{"uri":"laser1:power","value":0.8,"timestamp":"..."}}
//
// Errors carry a JSON-RPC code and the dictionary error code as data, for
// example {"code":-32000,"message":"...","data":"access_denied"}.
package ws
