// Package cli defines the frontdesk command tree.
//
// The root command opens the interactive console. Subcommands share the same
// configuration, stored session and query cache through app.Open, so a
// session created by `frontdesk login` is picked up by the console and the
// other way around.
//
// Commands:
//
//	frontdesk                          open the console
//	frontdesk login [--email]          sign in; the password is read without echo
//	frontdesk logout                   sign out and tell the server
//	frontdesk whoami                   show the signed-in staff member
//	frontdesk tables list [--status]   list the floor
//	frontdesk tables status ID STATUS  change a table's status
//	frontdesk tables create NUMBER     add a table
//	frontdesk tables delete ID         remove a table
//	frontdesk categories list          list menu categories, optionally by name
//	frontdesk categories delete ID     remove a category
//	frontdesk items list               list menu items
//	frontdesk items available ID on    mark an item available or sold out
package cli
