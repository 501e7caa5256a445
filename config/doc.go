// Package config loads service configuration and keeps the live property
// environment the peer topology is derived from.
//
// LoadConfig unmarshals the typed service config with Viper (YAML, .env,
// environment variables). Environment holds the flattened, case-insensitive
// eureka.* properties; every change to it produces a ChangeEvent carrying
// the set of changed keys, delivered synchronously to listeners. Changes
// come from a watched file, an etcd key prefix, or an explicit Reload.
package config
