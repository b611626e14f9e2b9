// Package account registers the local identity with a relay.
package account
