// Package http contains the HTTP surface: request/response types and gin
// handlers for rendering, health, and metrics. Handlers hold injected
// collaborators only; all orchestration lives in the domain layer.
package http
