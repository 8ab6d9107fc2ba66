// Package apitest provides an in-process fake of the identity and
// membership APIs for tests.
package apitest
