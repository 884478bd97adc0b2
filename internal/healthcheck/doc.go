// Package healthcheck exposes the standard gRPC health service
// (grpc.health.v1.Health) for orchestrators that probe over gRPC.
//
// Run polls the agency repository on an interval and reports SERVING while
// it can be read, NOT_SERVING otherwise, both for the whole server ("") and
// for the named Service.
package healthcheck
