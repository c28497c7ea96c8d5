// Package ws relays workspace edits between WebSocket clients.
//
// The package implements:
//   - Client: one WebSocket connection with a bounded outbound queue
//   - Handler: upgrades requests and runs the read and write pumps
//   - session: the per-connection protocol state machine
//     (unjoined, joined, terminated)
//
// Behavior:
//   - join registers the connection in its workspace, answers with a full
//     sync:state snapshot and announces the member to its peers
//   - edits from edit members are applied to the authoritative state and
//     then relayed verbatim to every other member
//   - edits from view members are answered privately with access:denied
//   - closing the connection removes the member and deletes the workspace
//     once nobody is left
package ws
