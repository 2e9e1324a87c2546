// Package cli implements the interactive gophchat terminal client: a prompt
// loop for authentication and chat commands, plus a background reader that
// prints replies and real-time notifications as they arrive.
package cli
