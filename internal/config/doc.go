// Package config loads YAML configuration and exposes it through
// dot-separated key paths, e.g. "queue.capacity" or "modules.webhook.addr".
// Values written with Set live only in memory until Save.
package config
