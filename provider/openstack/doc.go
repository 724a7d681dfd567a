// Package openstack provides the built-in kinds and the clients they use to
// reach OpenStack services.
//
// A Session authenticates once with the credentials in the standard OS_*
// environment variables. Clients creates one client per catalog service on
// first use, negotiates the microversion of services that have them, and
// applies the retry policy and rate limit of the service to every call.
//
// Items created on services that support tags carry SeedTag. Only tagged
// items are considered for pruning.
package openstack
