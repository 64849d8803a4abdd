// Package common holds what the file mover shares with its callers: the
// sentinel errors it returns, path and move checks, and operation stats.
package common
