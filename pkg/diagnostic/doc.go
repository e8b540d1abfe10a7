/*
Package diagnostic models build-time issues reported against user source code.

A diagnostic is a plain value: a free-form kind ("error", "warning", ...), a
human-readable message and a Span anchoring it in a named source unit. Spans and
diagnostics are totally ordered, so a build's output can be displayed in a stable
order and the "first error" is deterministic.

# Key Types

  - Position / Span: 1-based line/column ranges inside a source unit.
  - Error: the diagnostic record. Its display form is "KIND (span): message".
  - Collector: accumulates the diagnostics of one build pass and answers whether
    any of them blocks a module from running.

A build pass always replaces the previous one wholesale; diagnostics from
different builds are never merged.
*/
package diagnostic
