// Package drivers provides network commissioning drivers for Wi-Fi
// station, Thread and Ethernet interfaces.
//
// Each driver keeps the commissioned network list and delegates radio
// work to a Backend supplied by the platform. Connects and scans run on
// driver-owned goroutines and report through the callbacks defined by
// package networkcommissioning; Shutdown cancels them and waits.
//
// The Sim* backends simulate a radio for tests and the espmatter-node
// command.
package drivers
