// Package integration contains the ports to external systems.
//
// Key concepts:
//   - CatalogProvider: the storefront holding the remote copy of products, orders and stock levels
//   - ShippingProvider: the carrier generating labels, quotes and tracking
//   - SyncResult: collect-and-continue outcome of a batch synchronization
//   - SyncLocker: single-flight guard around synchronization runs
//
// Ports are defined here; adapters live in the infrastructure layer.
package integration
