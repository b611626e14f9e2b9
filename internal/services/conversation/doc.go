// Package conversation creates group conversations and sends and receives
// messages in them.
//
// Group messages are sealed once under the conversation's sender key, which
// travels to each member wrapped under that member's public key. Direct
// messages skip the sender key and are encrypted per recipient. Reception
// decrypts every fetched message independently: one that fails comes back
// marked unreadable and never stops the rest.
package conversation
