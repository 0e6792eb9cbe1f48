// Package routes declares the per-resource role policy for the admin
// console. The policy maps resource path prefixes to the role set allowed to
// access them, with built-in defaults, an optional JSON policy file, and hot
// reload so role assignments can change without a restart.
package routes
