// Package ws streams the ranked leaderboard to websocket clients.
//
// Each client receives the current leaderboard on connect, then again on
// every tick of Run and whenever Notify is called (after a successful
// refresh). Clients choose their sort with ?sort=&order= on the upgrade
// request; each message is ranked per client.
package ws
