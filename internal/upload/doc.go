// Package upload moves rendered artifacts into remote object storage. The
// Store interface covers a single transfer; Driver adds bounded retries with
// whole-file restarts so no partial remote object is ever referenced.
package upload
