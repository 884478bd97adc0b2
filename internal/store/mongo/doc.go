// Package mongo is the MongoDB Repository backend: one document per agency,
// a unique index on url and a position field for storage order.
package mongo
