// Package model defines the validated, strongly-typed specification model
// for a smartmake build: parameters, file aliases, resource pools, and task
// definitions, plus the pure template resolver that substitutes bound
// parameter values into path and command templates.
//
// Loaders (YAML/CUE documents) live in internal/cli. Everything downstream of
// the loader works only with this model and validated identifiers; raw
// documents are never re-parsed after load.
package model
