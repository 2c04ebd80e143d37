// Package ccswarmd provides a daemon for orchestrating a swarm of PTY-backed
// coding-agent sessions behind a single Unix-socket front door.
//
// ccswarmd manages a registry of long-lived PTY sessions, exposes them to
// local clients over a newline-delimited JSON protocol, delegates tasks to
// agents with circuit-breaker-protected fallback, runs fixed-phase
// orchestration workflows over task batches, gates risky actions behind an
// auto-accept policy engine, and publishes inter-agent coordination
// messages on a topic bus. Execution is traced end to end and can mirror
// spans and metrics to OpenTelemetry and Prometheus.
//
// # Quick Start
//
// Install the daemon:
//
//	go install github.com/kadirpekel/ccswarmd/cmd/ccswarmd@latest
//
// Start it against a config file:
//
//	ccswarmd serve --config ccswarmd.yaml
//
// # Using as a Go Library
//
// Import specific packages:
//
//	import (
//	    "github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
//	    "github.com/kadirpekel/ccswarmd/pkg/ipc"
//	    "github.com/kadirpekel/ccswarmd/pkg/config"
//	)
//
// # Architecture
//
//	Client → IPC Server → Handler → Session Manager → PTY Sessions
//	                          ↓
//	                    Auto-Accept Gate
//
// Agents coordinate independently of session I/O over the Bus, and tasks
// move through the Delegation Router and Orchestrator Workflow, all
// observed by the Tracing Collector.
//
// # Alpha Status
//
// ccswarmd is in alpha development. APIs may change.
package ccswarmd
