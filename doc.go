/*
Package router is the root of an observability data router core: the
durable buffering, topology scheduling, adaptive concurrency, metric
normalization, event model, and delivery-acknowledgement packages a source
→ transform → sink pipeline is built from.

# Packages

  - buffer: DiskV2, a single-writer/single-reader crash-safe on-disk queue
    with ledger-tracked acknowledgement windows.
  - topology: the component graph runtime — buffered edges (Memory/Disk/
    Composite), cooperative per-component scheduling, coordinated shutdown,
    diff-and-swap hot reload.
  - adaptive: an AIMD concurrency controller sizing a sink's in-flight
    permit pool from observed RTT and back-pressure.
  - metric: metric value normalization, splitting, and sketch conversion.
  - event: the Log/Metric/Trace event model and its wire codec.
  - ack: the refcounted acknowledgement plane tying source ingestion to
    terminal sink disposition across arbitrarily many transform stages.

# Scope

This module defines the contracts a router's collaborators must satisfy; it
does not implement them. Individual source/sink protocol implementations,
expression-language evaluation for filters and transforms, TLS setup,
configuration-file parsing, and a CLI are deliberately out of scope — a
caller constructs a topology.Graph programmatically and hands it to
topology.Build.

# Concurrency

Every exported type across these packages is safe for concurrent use by
multiple goroutines unless its documentation says otherwise.
*/
package router
