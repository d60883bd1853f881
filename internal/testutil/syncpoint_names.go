// This file defines sync point names used throughout the codebase.
// These are plain string constants with zero runtime overhead.
//
// Sync points allow tests to inject deterministic behavior into concurrent code.
// In production builds (without -tags synctest), SP() calls are no-ops.
package testutil

// Common sync point names used throughout the codebase, following the
// convention "Component::Function:Location".
const (
	// Buffer (DiskV2) lifecycle
	SPBufferOpen           = "Buffer::Open:Start"
	SPBufferOpenComplete   = "Buffer::Open:Complete"
	SPBufferClose          = "Buffer::Close:Start"
	SPBufferCloseComplete  = "Buffer::Close:Complete"
	SPBufferRecoverStart   = "Buffer::Recover:Start"
	SPBufferRecoverDone    = "Buffer::Recover:Complete"

	// Append path
	SPBufferAppend            = "Buffer::Append:Start"
	SPBufferAppendBeforeSync  = "Buffer::Append:BeforeSync"
	SPBufferAppendAfterSync   = "Buffer::Append:AfterSync"
	SPBufferAppendComplete    = "Buffer::Append:Complete"

	// Ledger
	SPLedgerCommitStart    = "Ledger::Commit:Start"
	SPLedgerCommitComplete = "Ledger::Commit:Complete"
	SPLedgerRecoverStart   = "Ledger::Recover:Start"
	SPLedgerRecoverDone    = "Ledger::Recover:Complete"

	// Read path
	SPReaderNext         = "Reader::Next:Start"
	SPReaderNextComplete = "Reader::Next:Complete"
	SPReaderAck          = "Reader::Ack:Start"
	SPReaderAckComplete  = "Reader::Ack:Complete"

	// Rotation
	SPRotateStart    = "Buffer::Rotate:Start"
	SPRotateComplete = "Buffer::Rotate:Complete"

	// Topology scheduler
	SPSchedulerRunStart      = "Scheduler::Run:Start"
	SPSchedulerRunComplete   = "Scheduler::Run:Complete"
	SPSchedulerReloadStart   = "Scheduler::Reload:Start"
	SPSchedulerReloadSwap    = "Scheduler::Reload:Swap"
	SPSchedulerReloadDone    = "Scheduler::Reload:Complete"
	SPSchedulerShutdown      = "Scheduler::Shutdown:Start"
	SPSchedulerShutdownDone  = "Scheduler::Shutdown:Complete"

	// Buffered edges
	SPEdgeSendStart    = "Edge::Send:Start"
	SPEdgeSendBlocked  = "Edge::Send:Blocked"
	SPEdgeSendComplete = "Edge::Send:Complete"
	SPEdgeOverflow     = "Edge::Send:Overflow"

	// Adaptive concurrency controller
	SPControllerSampleStart    = "Controller::Sample:Start"
	SPControllerSampleComplete = "Controller::Sample:Complete"
	SPControllerAdjust         = "Controller::Adjust:Start"

	// Acknowledgement plane
	SPNotifierDeliver = "Notifier::Deliver:Start"
	SPNotifierDone    = "Notifier::Deliver:Complete"
)
