// Command pwaforge runs the PWA transformation service and its companion
// maintenance commands.
package main
