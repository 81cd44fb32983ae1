// Package command turns request frames into commands and executes them
// against the shared state of a node.
//
// A request is an array of bulk strings. The first element, compared
// case-insensitively, selects one of the verbs:
//
//	PING [message]                  -> +PONG or +message
//	GET key                         -> +value, _ (null) or -ASK <slot> <address>
//	SET key value [xs seconds]      -> +OK (a SET without xs clears any previous TTL)
//	DELETE key                      -> :1 if the key existed, :0 otherwise
//	TTL key                         -> remaining seconds, :0 without expiry or key
//	ASKING                          -> +OK, next command on the connection ignores slot ownership
//
// Errors never escape this package. They are converted to SimpleError frames
// ("ERR ...") and the connection keeps serving requests.
//
// Slot routing: GET checks whether the key's slot is owned by this node. If not,
// the node answers with an ASK redirect and never touches its store. The client
// is expected to connect to the named node, send ASKING and resend the command.
// The asking flag lives in the connection's Session and is consumed by the very
// next command, whatever its verb.
package command
