// Package notifications delivers export lifecycle push notifications
// through an ntfy topic when one is configured.
package notifications
