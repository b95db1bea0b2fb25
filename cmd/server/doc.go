// Command server runs the renderbox HTTP service: it renders URLs inside
// isolated headless-browser contexts and resumes persisted session state
// across requests via Valkey. Configuration comes from the environment; see
// internal/infrastructure/config for recognized variables.
package main
