// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package swapengine implements a memory-pressure driven swap engine for an
// actor runtime whose unit of concurrency is a cown: a concurrently-owned
// object scheduled for exclusive or shared access via behaviours.
//
// When resident memory approaches a configured limit, the engine selects
// cowns using a replacement policy (LRU, LFU, Random, Round-Robin or
// Second-Chance), serializes their payloads to disk, frees the in-memory
// form, and transparently re-materializes the payload the next time a
// behaviour needs the cown.
//
// # Architecture
//
// A [Cown] carries an atomic [SwapState], access metadata used by the
// victim selector, and a strong/weak reference pair so the engine can
// observe candidates without extending their lifetime. The [Registry]
// tracks every cown the engine is managing; [SelectVictim] is a pure
// function over a registry snapshot implementing the replacement policies.
// A [Monitor] samples process memory on a dedicated goroutine, computes
// pressure, and schedules swap behaviours through a [Scheduler] supplied
// by the host runtime. [Engine] is the public façade: Create, Register,
// Wait, Stop.
//
// The actor scheduler itself — behaviour dispatch, dependency ordering
// across cowns — is outside this package's scope; it is consumed as the
// [Scheduler] interface. The internal/actorrt package provides a minimal
// reference implementation sufficient to exercise the engine end-to-end.
package swapengine
