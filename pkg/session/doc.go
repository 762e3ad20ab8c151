/*
Package session runs simulated conversations on the server side.

Manager combines a ports.SessionStore with the execution engine and makes
every read-modify-write of a session atomic, locally with a per-session mutex
and across replicas with an optional ports.DistributedLocker.
*/
package session
