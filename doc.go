// Package candrive configures and commands CiA 402 motor drives over a
// CAN bus using CANopen expedited SDO transfers.
//
// The package is built around a small set of collaborators :
// an [SDOClient] for object dictionary access, a [Drive] implementing
// the CiA 402 enable/disable state machine, a [Controller] that
// orchestrates profile velocity motion and a [HeartbeatMonitor] for
// passive liveness observation. All of them talk to the bus through
// the [Bus] interface, with implementations for socketcan and the
// virtualcan TCP server.
//
// Everything is single threaded and poll based : one SDO transaction
// is in flight at a time and the bus has a single owner per logical
// session.
package candrive
