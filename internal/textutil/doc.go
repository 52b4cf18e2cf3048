// Package textutil provides text helpers shared by the resolver and watch mode:
// Unicode-aware caseless matching and filename sanitization.
package textutil
