// Package config loads seed files from disk and holds the options of a run.
//
// A seed file is a YAML (or JSON) document mapping kind names to a sequence of
// items:
//
//  domain:
//    - name: ops
//
//  project:
//    - domain: ops
//      name: monitoring
//      description: Monitoring tools
//      tags: [infra]
//
//  user:
//    - domain: ops
//      name: prometheus
//      password: ${PROMETHEUS_PASSWORD}
//      default_project: monitoring
//
// A file may hold multiple documents separated by ---. Items from multiple
// files and documents are concatenated in the order they were loaded.
//
// Scalar values are read as strings and converted to the type of the field
// they are assigned to when the items are validated. References of the form
// ${NAME} are replaced with the value of the environment variable NAME before
// that; referencing a variable that is not set is an error.
//
// Every item and field keeps the location it was declared at, so that
// validation errors can point to the offending line.
package config
