// Package integration binds application-defined endpoints to cluster server
// instances.
//
// The data model (node, endpoints, clusters, attributes) is owned by the
// application. When the stack brings an endpoint up or down it invokes the
// per-cluster-family callbacks in Callbacks; those resolve the endpoint to
// a slot of a fixed-capacity table, construct the cluster instance with the
// right driver or startup configuration, and register it with the cluster
// registry consumed by the interaction model.
//
// Failures are returned as errors from the Coordinator. Callbacks logs them
// and continues, so one misconfigured endpoint does not keep the others
// from starting.
package integration
