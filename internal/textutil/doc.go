// Package textutil provides small text helpers for turning user-supplied
// labels into file names and lookup keys.
package textutil
