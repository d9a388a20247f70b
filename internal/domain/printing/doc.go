// Package printing describes the documents the clinic prints: the budget
// handed to a client for a quote, with the page layout it is printed on.
package printing
